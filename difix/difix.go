// Package difix repairs debug-type metadata so field-access relocation
// descriptors survive ahead-of-time type encoding.  Field accesses recorded
// through `llvm.preserve.access.index` reference a chain of debug-type
// records; the chain's terminal aggregate must carry a stable name, but
// aggregates declared anonymously behind a typedef have none.  The fix
// synthesizes the name from the typedef.  Only metadata is rewritten: no
// executable instruction is touched, and running the pass twice yields the
// same module as running it once.
package difix

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"

	"bpflink/report"
)

// accessIndexMD is the metadata attachment name placed on field-access
// relocation instructions and globals by the compiler.
const accessIndexMD = "llvm.preserve.access.index"

// maxTypeNameLen is KSYM_NAME_LEN from the kernel, intentionally set to the
// lowest value found across kernel versions.
const maxTypeNameLen = 128

// Run applies the fixup to every relocation descriptor in m.
func Run(m *ir.Module) {
	f := &fixer{aliases: aliasIndex(m)}

	for _, g := range m.Globals {
		for _, att := range g.Metadata {
			if att.Name == accessIndexMD {
				f.fixChain(g.GlobalName, att.Node)
			}
		}
	}

	for _, fn := range m.Funcs {
		for _, block := range fn.Blocks {
			for _, inst := range block.Insts {
				f.fixInst(fn.GlobalName, inst)
			}
		}
	}
}

type fixer struct {
	// aliases maps each anonymous aggregate to the first typedef record
	// pointing at it, in debug-record order.
	aliases map[*metadata.DICompositeType]*metadata.DIDerivedType
}

// aliasIndex collects the typedef records of the module.  The first alias
// found for an aggregate wins, which keeps the synthesized names stable
// across runs.
func aliasIndex(m *ir.Module) map[*metadata.DICompositeType]*metadata.DIDerivedType {
	aliases := make(map[*metadata.DICompositeType]*metadata.DIDerivedType)

	for _, def := range m.MetadataDefs {
		alias, ok := def.(*metadata.DIDerivedType)
		if !ok || alias.Tag != enum.DwarfTagTypedef || alias.Name == "" {
			continue
		}

		if base, ok := alias.BaseType.(*metadata.DICompositeType); ok {
			if _, seen := aliases[base]; !seen {
				aliases[base] = alias
			}
		}
	}

	return aliases
}

// fixInst inspects the relocation attachments of a single instruction.
// Only calls and GEPs carry access-index chains.
func (f *fixer) fixInst(owner string, inst ir.Instruction) {
	var atts []*metadata.Attachment
	switch inst := inst.(type) {
	case *ir.InstCall:
		atts = inst.Metadata
	case *ir.InstGetElementPtr:
		atts = inst.Metadata
	default:
		return
	}

	for _, att := range atts {
		if att.Name == accessIndexMD {
			f.fixChain(owner, att.Node)
		}
	}
}

// fixChain walks a debug-type chain to its terminal aggregate and names the
// aggregate if it is anonymous.  Reapplying the fix to an already-named
// aggregate is a no-op.
func (f *fixer) fixChain(owner string, node metadata.MDNode) {
	composite := terminalAggregate(node)
	if composite == nil {
		report.ReportTransformWarning("malformed debug-metadata chain on relocation in `%s`", owner)
		return
	}

	if composite.Tag != enum.DwarfTagStructureType && composite.Tag != enum.DwarfTagUnionType {
		return
	}

	if composite.Name != "" {
		composite.Name = sanitizeTypeName(composite.Name)
		return
	}

	alias, ok := f.aliases[composite]
	if !ok {
		report.ReportTransformWarning(
			"anonymous aggregate in relocation in `%s` has no type alias; relocations against it may not resolve", owner)
		return
	}

	composite.Name = sanitizeTypeName(alias.Name)
}

// terminalAggregate resolves a debug-type chain to the aggregate it
// describes, looking through derived records (pointers, members, typedefs,
// qualifiers).
func terminalAggregate(node metadata.MDNode) *metadata.DICompositeType {
	for node != nil {
		switch n := node.(type) {
		case *metadata.DICompositeType:
			return n
		case *metadata.DIDerivedType:
			base, ok := n.BaseType.(metadata.MDNode)
			if !ok {
				return nil
			}
			node = base
		default:
			return nil
		}
	}

	return nil
}

// sanitizeTypeName rewrites a type name to use only characters valid in C
// type names.  Names longer than the kernel symbol limit are truncated and
// suffixed with a hash so distinct long names stay distinct.
func sanitizeTypeName(name string) string {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		b := name[i]
		switch {
		case b >= '0' && b <= '9', b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b == '_':
			sb.WriteByte(b)
		default:
			fmt.Fprintf(&sb, "_%X_", b)
		}
	}

	sanitized := sb.String()
	if len(sanitized) > maxTypeNameLen {
		h := fnv.New64a()
		h.Write([]byte(sanitized))
		// leave space for the underscore and the 16 hex digit hash
		trim := maxTypeNameLen - 16 - 1
		sanitized = fmt.Sprintf("%s_%x", sanitized[:trim], h.Sum64())
	}

	return sanitized
}
