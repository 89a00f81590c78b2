// Package link implements the linker driver: it owns the backend context
// and runs the pipeline stage by stage, from input resolution through final
// emission.  A Linker is good for exactly one run.
package link

import (
	"strings"

	"github.com/llir/llvm/ir"

	"bpflink/common"
	"bpflink/difix"
	"bpflink/export"
	"bpflink/input"
	"bpflink/llc"
	"bpflink/merge"
	"bpflink/report"
	"bpflink/transform"
)

// Options is the full configuration of a link run.
type Options struct {
	// Inputs are the input paths, in command-line order.
	Inputs []string

	// Output is where the final artifact is written.
	Output string

	// Emit is the representation the final artifact is produced in.
	Emit common.EmitKind

	// Target is the explicit target triple.  Empty means infer it from
	// the inputs.
	Target string

	// Cpu is the processor model code is generated for.
	Cpu common.Cpu

	// CpuFeatures are the processor feature toggles.
	CpuFeatures *common.FeatureList

	// OptLevel is the optimization level.
	OptLevel common.OptLevel

	// ExportNames are symbol names that must stay externally visible.
	ExportNames []string

	// ExportFiles are files of newline-delimited symbol names to add to
	// the export set.
	ExportFiles []string

	// DumpModule, if non-empty, is where the transformed module is
	// written as IR text before optimization.
	DumpModule string

	// Transform holds the BPF rewrite toggles.
	Transform transform.Options
}

// Linker runs the link pipeline over a single mutable module.
type Linker struct {
	opts Options

	ctx    *llc.Context
	module *ir.Module
	triple string

	machine llc.TargetMachine
}

// NewLinker creates a new linker for the given configuration.
func NewLinker(opts Options) *Linker {
	return &Linker{opts: opts}
}

// Link runs the pipeline to completion.  It returns false as soon as a
// stage fails; no output file exists in that case.
func (l *Linker) Link() bool {
	l.initBackend()
	defer l.ctx.Dispose()

	if !l.resolveAndMerge() {
		return false
	}

	report.ReportLinkHeader(l.triple, l.opts.Cpu.String())

	if !(l.filterSymbols() && l.applyTransforms()) {
		return false
	}

	if !l.emit() {
		return false
	}

	report.ReportLinkFinished(l.opts.Output)
	return true
}

// initBackend installs the diagnostic handler, injects the backend command
// line, and creates the backend context.  The command line must be parsed
// before the context exists.
func (l *Linker) initBackend() {
	llc.SetDiagnosticHandler(handleDiagnostic)

	args := transform.BackendArgs(l.opts.Transform)
	report.ReportInfo("backend command line: %s", strings.Join(args, " "))

	llc.Init(args, "BPF static linker")

	l.ctx = llc.NewContext()
}

// resolveAndMerge expands the inputs into parsed modules and folds them
// into the single program module, then settles the target triple.
func (l *Linker) resolveAndMerge() bool {
	units, ok := input.NewResolver(l.ctx).Resolve(l.opts.Inputs)
	if !ok || !report.ShouldProceed() {
		return false
	}

	if len(units) == 0 {
		report.ReportFatal("no input modules to link")
	}

	res, ok := merge.Merge(units)
	if !ok || !report.ShouldProceed() {
		return false
	}

	l.module = res.Module
	return l.resolveTriple(res)
}

// resolveTriple picks the triple code is generated for.  An explicit
// --target always wins, including over inputs that disagree among
// themselves; without one, a disagreement is fatal.
func (l *Linker) resolveTriple(res *merge.Result) bool {
	if l.opts.Target != "" {
		l.triple = l.opts.Target
		return true
	}

	if c := res.TripleConflict; c != nil {
		report.ReportCodegenError(
			"conflicting target triples: %s is %s but %s is %s; pass --target to pick one",
			c.Path, c.Triple, c.OtherPath, c.OtherTriple,
		)
		return false
	}

	if strings.HasPrefix(res.Triple, "bpf") {
		l.triple = res.Triple
		return true
	}

	report.ReportInfo("input target `%s` is not BPF, linking for `%s`", res.Triple, common.DefaultTriple)
	l.triple = common.DefaultTriple
	return true
}

// filterSymbols builds the export set and demotes everything outside it to
// internal linkage.
func (l *Linker) filterSymbols() bool {
	set := export.NewSet(l.opts.ExportNames...)

	for _, path := range l.opts.ExportFiles {
		if err := set.AddFromFile(path); err != nil {
			report.ReportIOError(path, err)
			return false
		}
	}

	// The memory builtins survive internalization so calls the backend
	// could not expand still resolve at load time.
	if !l.opts.Transform.DisableMemoryBuiltins {
		for _, name := range common.MemoryBuiltins {
			set.Add(name)
		}
	}

	report.ReportInfo("exporting %d symbol(s)", set.Len())

	export.Filter(l.module, set)
	return report.ShouldProceed()
}

// applyTransforms rewrites debug metadata and applies the IR-level BPF
// rewrites.
func (l *Linker) applyTransforms() bool {
	difix.Run(l.module)
	transform.Apply(l.module, l.opts.Transform)
	return report.ShouldProceed()
}

// suppressedDiagnostics are backend errors that are demoted to silence:
// calls to these builtins resolve at load time against the exported
// builtin definitions, and the backend emits the object regardless.
var suppressedDiagnostics = []string{
	"A call to built-in function 'memcpy' is not supported.\n",
	"A call to built-in function 'memmove' is not supported.\n",
	"A call to built-in function 'memset' is not supported.\n",
	"A call to built-in function 'memcmp' is not supported.\n",
	"A call to built-in function 'bcmp' is not supported.\n",
	"A call to built-in function 'strlen' is not supported.\n",
}

// handleDiagnostic routes backend diagnostics into the reporter.
func handleDiagnostic(severity llc.Severity, msg string) {
	switch severity {
	case llc.SeverityError:
		for _, suppressed := range suppressedDiagnostics {
			if strings.HasSuffix(msg, suppressed) {
				return
			}
		}

		report.ReportBackendMessage(report.SeverityError, strings.TrimRight(msg, "\n"))
	case llc.SeverityWarning:
		report.ReportBackendMessage(report.SeverityWarning, strings.TrimRight(msg, "\n"))
	default:
		report.ReportBackendMessage(report.SeverityInfo, strings.TrimRight(msg, "\n"))
	}
}
