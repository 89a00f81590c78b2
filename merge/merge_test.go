package merge

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"bpflink/input"
	"bpflink/report"
)

func defineFunc(m *ir.Module, name string, linkage enum.Linkage) *ir.Func {
	f := m.NewFunc(name, types.I64)
	f.Linkage = linkage
	b := f.NewBlock("")
	b.NewRet(constant.NewInt(types.I64, 0))
	return f
}

func declareFunc(m *ir.Module, name string) *ir.Func {
	return m.NewFunc(name, types.I64)
}

func unit(path string, m *ir.Module) *input.Unit {
	return &input.Unit{Module: m, Path: path}
}

func TestMergeDuplicateStrongDefinitions(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	defineFunc(a, "handler", enum.LinkageExternal)
	b := ir.NewModule()
	defineFunc(b, "handler", enum.LinkageExternal)

	_, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.False(t, ok)
	require.False(t, report.ShouldProceed())
}

func TestMergeStrongReplacesWeak(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	defineFunc(a, "handler", enum.LinkageWeak)
	b := ir.NewModule()
	strong := defineFunc(b, "handler", enum.LinkageExternal)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 1)
	require.Same(t, strong, res.Module.Funcs[0])
}

func TestMergeWeakYieldsToEarlierStrong(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	strong := defineFunc(a, "handler", enum.LinkageExternal)
	b := ir.NewModule()
	defineFunc(b, "handler", enum.LinkageWeak)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 1)
	require.Same(t, strong, res.Module.Funcs[0])
}

func TestMergeWeakAgainstWeakKeepsFirst(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	first := defineFunc(a, "handler", enum.LinkageWeak)
	b := ir.NewModule()
	defineFunc(b, "handler", enum.LinkageLinkOnce)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 1)
	require.Same(t, first, res.Module.Funcs[0])
}

func TestMergeDefinitionReplacesDeclaration(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	declareFunc(a, "handler")
	b := ir.NewModule()
	def := defineFunc(b, "handler", enum.LinkageExternal)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 1)
	require.Same(t, def, res.Module.Funcs[0])
}

func TestMergeDeclarationSatisfiedByEarlierDefinition(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	def := defineFunc(a, "handler", enum.LinkageExternal)
	b := ir.NewModule()
	declareFunc(b, "handler")

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 1)
	require.Same(t, def, res.Module.Funcs[0])
}

func TestMergeRenamesCollidingLocals(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	defineFunc(a, "helper", enum.LinkageInternal)
	b := ir.NewModule()
	defineFunc(b, "helper", enum.LinkageInternal)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 2)
	require.Equal(t, "helper", res.Module.Funcs[0].GlobalName)
	require.Equal(t, "helper.1", res.Module.Funcs[1].GlobalName)
}

func TestMergeLocalGivesWayToExternal(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	local := defineFunc(a, "handler", enum.LinkageInternal)
	b := ir.NewModule()
	external := defineFunc(b, "handler", enum.LinkageExternal)

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Funcs, 2)
	require.NotEqual(t, "handler", local.GlobalName)
	require.Equal(t, "handler", external.GlobalName)
}

func TestMergeSymbolCategoryConflict(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	declareFunc(a, "table")
	b := ir.NewModule()
	b.NewGlobalDef("table", constant.NewInt(types.I64, 0))

	_, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.False(t, ok)
	require.False(t, report.ShouldProceed())
}

func TestMergeSymbolCategoryConflictAfterDefinition(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	a.NewGlobalDef("table", constant.NewInt(types.I64, 0))
	b := ir.NewModule()
	defineFunc(b, "table", enum.LinkageWeak)

	_, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.False(t, ok)
	require.False(t, report.ShouldProceed())
}

func TestMergeGlobals(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	a.NewGlobalDef("counter", constant.NewInt(types.I64, 0))
	b := ir.NewModule()
	g := b.NewGlobal("counter", types.I64)
	g.Linkage = enum.LinkageExternal

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Len(t, res.Module.Globals, 1)
	require.Equal(t, "counter", res.Module.Globals[0].GlobalName)
	require.NotNil(t, res.Module.Globals[0].Init)
}

func TestMergeTriple(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	a.TargetTriple = "bpfel"
	b := ir.NewModule()
	b.TargetTriple = "bpfel"

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Equal(t, "bpfel", res.Triple)
	require.Nil(t, res.TripleConflict)
}

func TestMergeTripleConflictRecorded(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	a := ir.NewModule()
	a.TargetTriple = "bpfel"
	b := ir.NewModule()
	b.TargetTriple = "bpfeb"

	res, ok := Merge([]*input.Unit{unit("a.bc", a), unit("b.bc", b)})
	require.True(t, ok)
	require.Equal(t, "bpfel", res.Triple)
	require.NotNil(t, res.TripleConflict)
	require.Equal(t, "a.bc", res.TripleConflict.Path)
	require.Equal(t, "bpfel", res.TripleConflict.Triple)
	require.Equal(t, "b.bc", res.TripleConflict.OtherPath)
	require.Equal(t, "bpfeb", res.TripleConflict.OtherTriple)
}
