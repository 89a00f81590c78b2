// Package merge implements the module linker: it folds an ordered list of
// parsed input modules into a single program module, resolving symbol
// linkage conflicts along the way.
package merge

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"

	"bpflink/input"
	"bpflink/report"
	"bpflink/util"
)

// TripleConflict records two inputs that disagree about the target triple.
type TripleConflict struct {
	Triple, OtherTriple string
	Path, OtherPath     string
}

// Result is the outcome of a merge.
type Result struct {
	// Module is the single merged program module.
	Module *ir.Module

	// Triple is the first non-empty target triple recorded by the inputs.
	Triple string

	// TripleConflict is non-nil if two inputs recorded different triples.
	// Whether that is fatal depends on whether an explicit target was
	// given, so the decision is left to the optimization driver.
	TripleConflict *TripleConflict
}

// symbol is the linker's view of one externally visible name in the
// accumulator module.
type symbol struct {
	name   string
	weak   bool
	def    bool
	origin string
	obj    named

	// kind is the symbol's object category.  Replacement only ever swaps
	// objects of the same category; a name that is a function in one
	// input and a global in another is a link error, not a resolution.
	kind string
}

// named is implemented by every global object (functions, globals, aliases,
// ifuncs).
type named interface {
	Name() string
	SetName(name string)
}

type merger struct {
	dst *ir.Module

	// syms tracks externally visible symbols by name.
	syms map[string]*symbol

	// localByName tracks module-local symbols so colliding locals from
	// later inputs can be renamed.
	localByName map[string]named

	// usedNames is every name currently present in the accumulator.
	usedNames map[string]bool

	typeDefs map[string]bool
	comdats  map[string]bool

	nextMetaID  int64
	nextAttrID  int64
	localSuffix int

	triple     string
	triplePath string
	layout     string
	conflict   *TripleConflict
}

// Merge merges the ordered unit list into a single module.  Two external
// strong definitions of the same name are a fatal link error naming both
// origin files.  A weak definition always yields to a strong one regardless
// of order.  When two weak definitions collide the first one seen wins: the
// tie-break follows input order and is part of the linker's observable
// contract, not an internal accident.
func Merge(units []*input.Unit) (*Result, bool) {
	m := &merger{
		dst:         ir.NewModule(),
		syms:        make(map[string]*symbol),
		localByName: make(map[string]named),
		usedNames:   make(map[string]bool),
		typeDefs:    make(map[string]bool),
		comdats:     make(map[string]bool),
	}

	for _, unit := range units {
		if !m.mergeUnit(unit) {
			return nil, false
		}
	}

	m.dst.TargetTriple = m.triple
	m.dst.DataLayout = m.layout

	return &Result{Module: m.dst, Triple: m.triple, TripleConflict: m.conflict}, true
}

func (m *merger) mergeUnit(unit *input.Unit) bool {
	src := unit.Module

	m.mergeTarget(src, unit.Path)
	m.mergeTypeDefs(src)
	m.mergeComdats(src)
	m.mergeAttrGroups(src)
	m.mergeMetadata(src)

	// Module-level inline asm concatenates like LLVM's IR linker.
	for _, asm := range src.ModuleAsms {
		if !util.Contains(m.dst.ModuleAsms, asm) {
			m.dst.ModuleAsms = append(m.dst.ModuleAsms, asm)
		}
	}

	for _, g := range src.Globals {
		if isLocal(g.Linkage) {
			m.addLocal(g, func() { m.dst.Globals = append(m.dst.Globals, g) })
			continue
		}
		if !m.addSymbol(g, isWeak(g.Linkage), g.Init != nil, unit.Path,
			func() { m.dst.Globals = append(m.dst.Globals, g) },
			func(old named) { m.dst.Globals = util.Remove(m.dst.Globals, old.(*ir.Global)) }) {
			return false
		}
	}

	for _, f := range src.Funcs {
		if isLocal(f.Linkage) {
			m.addLocal(f, func() { m.dst.Funcs = append(m.dst.Funcs, f) })
			continue
		}
		if !m.addSymbol(f, isWeak(f.Linkage), len(f.Blocks) > 0, unit.Path,
			func() { m.dst.Funcs = append(m.dst.Funcs, f) },
			func(old named) { m.dst.Funcs = util.Remove(m.dst.Funcs, old.(*ir.Func)) }) {
			return false
		}
	}

	for _, a := range src.Aliases {
		if isLocal(a.Linkage) {
			m.addLocal(a, func() { m.dst.Aliases = append(m.dst.Aliases, a) })
			continue
		}
		if !m.addSymbol(a, isWeak(a.Linkage), true, unit.Path,
			func() { m.dst.Aliases = append(m.dst.Aliases, a) },
			func(old named) { m.dst.Aliases = util.Remove(m.dst.Aliases, old.(*ir.Alias)) }) {
			return false
		}
	}

	for _, i := range src.IFuncs {
		if isLocal(i.Linkage) {
			m.addLocal(i, func() { m.dst.IFuncs = append(m.dst.IFuncs, i) })
			continue
		}
		if !m.addSymbol(i, isWeak(i.Linkage), true, unit.Path,
			func() { m.dst.IFuncs = append(m.dst.IFuncs, i) },
			func(old named) { m.dst.IFuncs = util.Remove(m.dst.IFuncs, old.(*ir.IFunc)) }) {
			return false
		}
	}

	return true
}

// mergeTarget records the triple and data layout of the first input that
// declares them.  A later input with a different triple is remembered as a
// conflict for the optimization driver.
func (m *merger) mergeTarget(src *ir.Module, path string) {
	if src.TargetTriple != "" {
		if m.triple == "" {
			m.triple = src.TargetTriple
			m.triplePath = path
		} else if src.TargetTriple != m.triple && m.conflict == nil {
			m.conflict = &TripleConflict{
				Triple:      m.triple,
				Path:        m.triplePath,
				OtherTriple: src.TargetTriple,
				OtherPath:   path,
			}
		}
	}

	if src.DataLayout != "" {
		if m.layout == "" {
			m.layout = src.DataLayout
		} else if src.DataLayout != m.layout {
			report.ReportWarning("input %s overrides data layout; keeping the first layout seen", path)
		}
	}
}

// mergeTypeDefs merges named type definitions.  Identified types are nominal
// in the IR, so two inputs defining the same name refer to the same type;
// the first definition is kept and later ones are dropped rather than
// treated as conflicts.
func (m *merger) mergeTypeDefs(src *ir.Module) {
	for _, t := range src.TypeDefs {
		name := t.Name()
		if name != "" && m.typeDefs[name] {
			continue
		}
		m.typeDefs[name] = true
		m.dst.TypeDefs = append(m.dst.TypeDefs, t)
	}
}

func (m *merger) mergeComdats(src *ir.Module) {
	for _, c := range src.ComdatDefs {
		if m.comdats[c.Name] {
			continue
		}
		m.comdats[c.Name] = true
		m.dst.ComdatDefs = append(m.dst.ComdatDefs, c)
	}
}

// mergeAttrGroups renumbers incoming attribute group definitions into the
// accumulator's ID space.  Functions reference the definitions by pointer,
// so only the printed IDs change.
func (m *merger) mergeAttrGroups(src *ir.Module) {
	for _, g := range src.AttrGroupDefs {
		g.ID = m.nextAttrID
		m.nextAttrID++
		m.dst.AttrGroupDefs = append(m.dst.AttrGroupDefs, g)
	}
}

// mergeMetadata renumbers the incoming metadata arena into the
// accumulator's ID space and concatenates named metadata.  Debug records are
// referenced by pointer throughout the module, so renumbering does not
// disturb the chains.
func (m *merger) mergeMetadata(src *ir.Module) {
	for _, def := range src.MetadataDefs {
		def.SetID(m.nextMetaID)
		m.nextMetaID++
		m.dst.MetadataDefs = append(m.dst.MetadataDefs, def)
	}

	for name, nd := range src.NamedMetadataDefs {
		if m.dst.NamedMetadataDefs == nil {
			m.dst.NamedMetadataDefs = make(map[string]*metadata.NamedDef)
		}
		if existing, ok := m.dst.NamedMetadataDefs[name]; ok {
			existing.Nodes = append(existing.Nodes, nd.Nodes...)
		} else {
			m.dst.NamedMetadataDefs[name] = nd
		}
	}
}

// addLocal appends a module-local symbol, renaming it when its name is
// already taken.  Locals never conflict across modules.
func (m *merger) addLocal(obj named, appendObj func()) {
	name := obj.Name()
	if m.usedNames[name] {
		m.localSuffix++
		name = fmt.Sprintf("%s.%d", name, m.localSuffix)
		obj.SetName(name)
	}

	m.usedNames[name] = true
	m.localByName[name] = obj
	appendObj()
}

// addSymbol resolves one externally visible symbol against the accumulator.
func (m *merger) addSymbol(obj named, weak, def bool, origin string, appendObj func(), removeObj func(named)) bool {
	name := obj.Name()
	kind := symbolKind(obj)

	// A local in an earlier module may hold the name; the local gives way
	// since external names are ABI-meaningful.
	if local, ok := m.localByName[name]; ok {
		m.localSuffix++
		renamed := fmt.Sprintf("%s.%d", name, m.localSuffix)
		local.SetName(renamed)
		delete(m.localByName, name)
		m.localByName[renamed] = local
		m.usedNames[renamed] = true
	}

	existing := m.syms[name]
	if existing == nil {
		m.syms[name] = &symbol{name: name, weak: weak, def: def, origin: origin, obj: obj, kind: kind}
		m.usedNames[name] = true
		appendObj()
		return true
	}

	if existing.kind != kind {
		report.ReportLinkError("symbol `%s` is a %s in %s but a %s in %s",
			name, existing.kind, existing.origin, kind, origin)
		return false
	}

	if !def {
		// Declarations are satisfied by whatever definition or earlier
		// declaration is already present.
		return true
	}

	if !existing.def {
		// A definition replaces an earlier declaration.
		removeObj(existing.obj)
		existing.weak = weak
		existing.def = true
		existing.origin = origin
		existing.obj = obj
		appendObj()
		return true
	}

	switch {
	case !existing.weak && !weak:
		report.ReportLinkError("duplicate symbol `%s`: defined in both %s and %s", name, existing.origin, origin)
		return false
	case existing.weak && !weak:
		// A strong definition replaces a weak one.
		removeObj(existing.obj)
		existing.weak = false
		existing.origin = origin
		existing.obj = obj
		appendObj()
	default:
		// Weak yields to strong; weak-vs-weak keeps the first seen.
	}

	return true
}

// symbolKind names the object category of a symbol for conflict messages.
func symbolKind(obj named) string {
	switch obj.(type) {
	case *ir.Func:
		return "function"
	case *ir.Global:
		return "global"
	case *ir.Alias:
		return "alias"
	default:
		return "ifunc"
	}
}

func isLocal(linkage enum.Linkage) bool {
	return linkage == enum.LinkageInternal || linkage == enum.LinkagePrivate
}

func isWeak(linkage enum.Linkage) bool {
	switch linkage {
	case enum.LinkageWeak, enum.LinkageWeakODR,
		enum.LinkageLinkOnce, enum.LinkageLinkOnceODR,
		enum.LinkageCommon, enum.LinkageExternWeak,
		enum.LinkageAvailableExternally:
		return true
	}

	return false
}
