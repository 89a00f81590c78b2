package difix

import (
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/metadata"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/require"

	"bpflink/report"
)

// buildAliasedAggregate builds a module holding an anonymous aggregate
// reached through a typedef, with a field-access relocation attached to a
// global.
func buildAliasedAggregate(tag enum.DwarfTag) (*ir.Module, *metadata.DICompositeType) {
	composite := &metadata.DICompositeType{Tag: tag}
	alias := &metadata.DIDerivedType{
		Tag:      enum.DwarfTagTypedef,
		Name:     "task",
		BaseType: composite,
	}

	m := ir.NewModule()
	m.MetadataDefs = append(m.MetadataDefs, composite, alias)

	g := m.NewGlobalDef("probe_target", constant.NewInt(types.I64, 0))
	g.Metadata = append(g.Metadata, &metadata.Attachment{
		Name: accessIndexMD,
		Node: alias,
	})

	return m, composite
}

func TestRunNamesAnonymousStruct(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m, composite := buildAliasedAggregate(enum.DwarfTagStructureType)

	Run(m)
	require.Equal(t, "task", composite.Name)
}

func TestRunNamesAnonymousUnion(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m, composite := buildAliasedAggregate(enum.DwarfTagUnionType)

	Run(m)
	require.Equal(t, "task", composite.Name)
}

func TestRunIsIdempotent(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m, composite := buildAliasedAggregate(enum.DwarfTagStructureType)

	Run(m)
	Run(m)
	require.Equal(t, "task", composite.Name)
}

func TestRunSanitizesExistingName(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m, composite := buildAliasedAggregate(enum.DwarfTagStructureType)
	composite.Name = "pair<int, int>"

	Run(m)
	require.Equal(t, "pair_3C_int_2C__20_int_3E_", composite.Name)
}

func TestRunWarnsWhenNoAliasExists(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	composite := &metadata.DICompositeType{Tag: enum.DwarfTagStructureType}

	m := ir.NewModule()
	m.MetadataDefs = append(m.MetadataDefs, composite)

	g := m.NewGlobalDef("probe_target", constant.NewInt(types.I64, 0))
	g.Metadata = append(g.Metadata, &metadata.Attachment{
		Name: accessIndexMD,
		Node: composite,
	})

	Run(m)

	require.Empty(t, composite.Name)
	require.True(t, report.ShouldProceed())

	warned := false
	for _, rec := range report.Records() {
		if rec.Severity == report.SeverityWarning && rec.Kind == report.KindTransform {
			warned = true
		}
	}
	require.True(t, warned)
}

func TestRunIgnoresNamedAggregates(t *testing.T) {
	report.InitReporter(report.LogLevelSilent)

	m, composite := buildAliasedAggregate(enum.DwarfTagStructureType)
	composite.Name = "sk_buff"

	Run(m)
	require.Equal(t, "sk_buff", composite.Name)
}

func TestSanitizeTypeName(t *testing.T) {
	require.Equal(t, "plain_name", sanitizeTypeName("plain_name"))
	require.Equal(t, "a_20_b", sanitizeTypeName("a b"))
	require.Equal(t, "vec_3C_u8_3E_", sanitizeTypeName("vec<u8>"))
}

func TestSanitizeTypeNameTruncatesLongNames(t *testing.T) {
	long1 := strings.Repeat("a", 200) + "x"
	long2 := strings.Repeat("a", 200) + "y"

	s1 := sanitizeTypeName(long1)
	s2 := sanitizeTypeName(long2)

	require.LessOrEqual(t, len(s1), maxTypeNameLen)
	require.LessOrEqual(t, len(s2), maxTypeNameLen)
	require.NotEqual(t, s1, s2)
}
