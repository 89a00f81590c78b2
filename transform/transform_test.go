package transform

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"bpflink/report"
)

func TestBackendArgsDefault(t *testing.T) {
	args := BackendArgs(Options{})

	require.Equal(t, "bpflink", args[0])
	require.Contains(t, args, "--cold-callsite-rel-freq=0")
	require.Contains(t, args, "--bpf-expand-memcpy-in-order")
	require.NotContains(t, args, "--unroll-runtime")
}

func TestBackendArgsUnrollLoops(t *testing.T) {
	args := BackendArgs(Options{UnrollLoops: true})

	require.Contains(t, args, "--unroll-runtime")
	require.Contains(t, args, "--unroll-runtime-multi-exit")
	require.Contains(t, args, "--unroll-max-upperbound=4294967295")
	require.Contains(t, args, "--unroll-threshold=4294967295")
}

func TestBackendArgsDisableExpandMemcpy(t *testing.T) {
	args := BackendArgs(Options{DisableExpandMemcpyInOrder: true})

	require.NotContains(t, args, "--bpf-expand-memcpy-in-order")
}

func TestBackendArgsExtraArgsLast(t *testing.T) {
	args := BackendArgs(Options{ExtraBackendArgs: []string{"--bpf-stack-size=256"}})

	require.Equal(t, "--bpf-stack-size=256", args[len(args)-1])
}

func TestApplyStripsNoInline(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m := ir.NewModule()
	f := m.NewFunc("handler", types.I64)
	f.FuncAttrs = append(f.FuncAttrs, enum.FuncAttrNoInline, enum.FuncAttrAlwaysInline)
	b := f.NewBlock("")
	b.NewRet(constant.NewInt(types.I64, 0))

	group := &ir.AttrGroupDef{ID: 0, FuncAttrs: []ir.FuncAttribute{enum.FuncAttrNoInline}}
	m.AttrGroupDefs = append(m.AttrGroupDefs, group)

	Apply(m, Options{IgnoreInlineNever: true})

	require.Equal(t, []ir.FuncAttribute{enum.FuncAttrAlwaysInline}, f.FuncAttrs)
	require.Empty(t, group.FuncAttrs)
}

func TestApplyKeepsNoInlineByDefault(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m := ir.NewModule()
	f := m.NewFunc("handler", types.I64)
	f.FuncAttrs = append(f.FuncAttrs, enum.FuncAttrNoInline)
	b := f.NewBlock("")
	b.NewRet(constant.NewInt(types.I64, 0))

	Apply(m, Options{})

	require.Equal(t, []ir.FuncAttribute{enum.FuncAttrNoInline}, f.FuncAttrs)
}

func TestApplyDropsProbestackAsm(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m := ir.NewModule()
	m.ModuleAsms = []string{".globl __rust_probestack\n__rust_probestack:\n\tret"}

	Apply(m, Options{})

	require.Empty(t, m.ModuleAsms)
}

func TestApplyKeepsUnrelatedAsm(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m := ir.NewModule()
	m.ModuleAsms = []string{".section license"}

	Apply(m, Options{})

	require.Equal(t, []string{".section license"}, m.ModuleAsms)
}
