// Package export applies the user-declared export set to the merged module:
// every externally visible definition outside the set is demoted to internal
// linkage so optimization can discard it, and exported definitions are
// pinned so optimization cannot.
package export

import (
	"bufio"
	"os"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"bpflink/report"
)

// Set is the set of symbol names that must remain externally visible in the
// final artifact.  Insertion order is irrelevant.
type Set struct {
	names map[string]bool
}

// NewSet creates an export set from the given names.
func NewSet(names ...string) *Set {
	s := &Set{names: make(map[string]bool)}
	for _, name := range names {
		s.Add(name)
	}

	return s
}

// Add inserts a symbol name into the set.
func (s *Set) Add(name string) {
	if name != "" {
		s.names[name] = true
	}
}

// AddFromFile inserts the newline-delimited symbol names stored at path.
func (s *Set) AddFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s.Add(strings.TrimSpace(sc.Text()))
	}

	return sc.Err()
}

// Contains returns whether name is in the set.
func (s *Set) Contains(name string) bool {
	return s.names[name]
}

// Len returns the number of names in the set.
func (s *Set) Len() int {
	return len(s.names)
}

// -----------------------------------------------------------------------------

// Filter rewrites symbol visibility in m so that only members of set, and
// symbols placed in a named section (BPF programs and maps), keep external
// linkage.  Every other externally visible definition becomes internal.
// Exported definitions are appended to @llvm.compiler.used so later
// optimization cannot eliminate them, which would make them unexportable.
// This must run before optimization: running it after would make dead-code
// elimination meaningless for unexported definitions.
func Filter(m *ir.Module, set *Set) {
	var pinned []constant.Constant
	found := make(map[string]bool)

	for _, f := range m.Funcs {
		name := f.GlobalName
		if strings.HasPrefix(name, "llvm.") {
			continue
		}

		if exported(set, name, f.Section) {
			found[name] = true
			if len(f.Blocks) > 0 {
				f.Linkage = enum.LinkageExternal
				f.Visibility = enum.VisibilityNone
				pinned = append(pinned, f)
			}
			continue
		}

		if len(f.Blocks) > 0 && !isLocal(f.Linkage) {
			f.Linkage = enum.LinkageInternal
			f.Visibility = enum.VisibilityNone
		}
	}

	for _, g := range m.Globals {
		name := g.GlobalName
		if strings.HasPrefix(name, "llvm.") {
			continue
		}

		if exported(set, name, g.Section) {
			found[name] = true
			if g.Init != nil {
				g.Linkage = enum.LinkageExternal
				g.Visibility = enum.VisibilityNone
				pinned = append(pinned, g)
			}
			continue
		}

		if g.Init != nil && !isLocal(g.Linkage) {
			g.Linkage = enum.LinkageInternal
			g.Visibility = enum.VisibilityNone
		}
	}

	for _, a := range m.Aliases {
		name := a.GlobalName
		if set.Contains(name) {
			found[name] = true
			a.Linkage = enum.LinkageExternal
			a.Visibility = enum.VisibilityNone
			pinned = append(pinned, a)
			continue
		}

		if !isLocal(a.Linkage) {
			a.Linkage = enum.LinkageInternal
			a.Visibility = enum.VisibilityNone
		}
	}

	// Names that match nothing may legitimately have been eliminated
	// already; they are logged, not rejected.
	for name := range set.names {
		if !found[name] {
			report.ReportWarning("export symbol `%s` not found in the linked module", name)
		}
	}

	if len(pinned) > 0 {
		pinSymbols(m, pinned)
	}
}

// exported reports whether the symbol keeps external linkage.  Symbols in a
// named section are always kept: those are the program entry points and
// maps the consumer loads by section name.
func exported(set *Set, name, section string) bool {
	return set.Contains(name) || (section != "" && section != "llvm.metadata")
}

// pinSymbols records the exported definitions in @llvm.compiler.used.  If
// an input already carried the array, its members are preserved.
func pinSymbols(m *ir.Module, pinned []constant.Constant) {
	i8ptr := types.NewPointer(types.I8)

	elems := make([]constant.Constant, 0, len(pinned))
	for _, obj := range pinned {
		elems = append(elems, constant.NewBitCast(obj, i8ptr))
	}

	for _, g := range m.Globals {
		if g.GlobalName == "llvm.compiler.used" {
			if arr, ok := g.Init.(*constant.Array); ok {
				elems = append(arr.Elems, elems...)
			}
			arr := constant.NewArray(nil, elems...)
			g.Init = arr
			g.ContentType = arr.Typ
			g.Typ = types.NewPointer(arr.Typ)
			return
		}
	}

	arr := constant.NewArray(nil, elems...)
	used := m.NewGlobalDef("llvm.compiler.used", arr)
	used.Linkage = enum.LinkageAppending
	used.Section = "llvm.metadata"
}

func isLocal(linkage enum.Linkage) bool {
	return linkage == enum.LinkageInternal || linkage == enum.LinkagePrivate
}
