// Package transform applies the BPF-specific rewrites that adapt a merged
// module to restricted runtimes.  Each rewrite is independently toggleable;
// some act on the IR directly and some configure the backend through its
// command line, which is the only way to reach the relevant passes from the
// C API.
package transform

import (
	"fmt"
	"math"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"

	"bpflink/report"
)

// Options are the transform toggles, named for the flags that drive them.
type Options struct {
	// DisableExpandMemcpyInOrder turns off the forced in-order expansion
	// of bulk memory operations into load/store sequences.  Expansion is
	// on by default because many restricted runtimes cannot execute the
	// backend's fused memory-intrinsic calls.
	DisableExpandMemcpyInOrder bool

	// DisableMemoryBuiltins turns off re-exporting memcpy, memmove,
	// memset, memcmp and bcmp.  Keeping them exported is commonly needed
	// when expansion cannot fully eliminate the intrinsic calls.
	DisableMemoryBuiltins bool

	// IgnoreInlineNever removes `noinline` attributes, for runtimes that
	// don't support function calls.  Opt-in: it changes observable call
	// stack behavior.
	IgnoreInlineNever bool

	// UnrollLoops requests maximal unrolling, for runtimes that don't
	// support backward branches.  Opt-in: it can drastically grow the
	// code, and the backend may still fail to eliminate a loop (reported
	// by the backend as a warning, not an error).
	UnrollLoops bool

	// ExtraBackendArgs are passed to the backend verbatim.
	ExtraBackendArgs []string
}

// BackendArgs computes the command line injected into the backend before
// any module is parsed.  Unrolling and in-order memcpy expansion can only
// be customized this way.
func BackendArgs(opts Options) []string {
	args := []string{
		"bpflink",
		// Cold call sites ignore inline(always) hints starting with
		// LLVM 17, which breaks codegen for the tiny accessors BPF
		// programs are built from.  Disable cold call site detection.
		"--cold-callsite-rel-freq=0",
	}

	if opts.UnrollLoops {
		args = append(args,
			"--unroll-runtime",
			"--unroll-runtime-multi-exit",
			fmt.Sprintf("--unroll-max-upperbound=%d", uint32(math.MaxUint32)),
			fmt.Sprintf("--unroll-threshold=%d", uint32(math.MaxUint32)),
		)
	}

	if !opts.DisableExpandMemcpyInOrder {
		args = append(args, "--bpf-expand-memcpy-in-order")
	}

	return append(args, opts.ExtraBackendArgs...)
}

// Apply runs the IR-level transforms on the merged module.
func Apply(m *ir.Module, opts Options) {
	if opts.IgnoreInlineNever {
		stripNoInline(m)
	}

	dropProbestackAsm(m)
}

// stripNoInline removes the `noinline` attribute from every function
// definition, both directly and through attribute groups.
func stripNoInline(m *ir.Module) {
	stripped := 0

	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue
		}

		attrs := f.FuncAttrs[:0]
		for _, attr := range f.FuncAttrs {
			if a, ok := attr.(enum.FuncAttr); ok && a == enum.FuncAttrNoInline {
				stripped++
				continue
			}
			attrs = append(attrs, attr)
		}
		f.FuncAttrs = attrs
	}

	for _, g := range m.AttrGroupDefs {
		attrs := g.FuncAttrs[:0]
		for _, attr := range g.FuncAttrs {
			if a, ok := attr.(enum.FuncAttr); ok && a == enum.FuncAttrNoInline {
				stripped++
				continue
			}
			attrs = append(attrs, attr)
		}
		g.FuncAttrs = attrs
	}

	if stripped > 0 {
		report.ReportInfo("stripped noinline from %d locations", stripped)
	}
}

// dropProbestackAsm removes the module-level inline asm blob rustc emits
// for stack probing.  The BPF backend cannot assemble it, and BPF programs
// have no stack to probe.
func dropProbestackAsm(m *ir.Module) {
	for _, asm := range m.ModuleAsms {
		if strings.Contains(asm, "__rust_probestack") {
			m.ModuleAsms = nil
			return
		}
	}
}
