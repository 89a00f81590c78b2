package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShouldProceedAfterWarnings(t *testing.T) {
	InitReporter(LogLevelSilent)

	ReportWarning("something odd in %s", "a.bc")
	ReportTransformWarning("metadata chain looks off")

	require.True(t, ShouldProceed())
	require.Len(t, Records(), 2)
}

func TestShouldNotProceedAfterError(t *testing.T) {
	InitReporter(LogLevelSilent)

	ReportWarning("harmless")
	ReportLinkError("duplicate symbol `%s`", "handler")

	require.False(t, ShouldProceed())
}

func TestRecordsKeepArrivalOrder(t *testing.T) {
	InitReporter(LogLevelSilent)

	ReportInfo("first")
	ReportWarning("second")
	ReportLinkError("third")

	recs := Records()
	require.Len(t, recs, 3)
	require.Equal(t, SeverityInfo, recs[0].Severity)
	require.Equal(t, SeverityWarning, recs[1].Severity)
	require.Equal(t, SeverityError, recs[2].Severity)
}

func TestRecordCarriesPathAndKind(t *testing.T) {
	InitReporter(LogLevelSilent)

	ReportParseError("a.bc", "truncated bitcode")

	recs := Records()
	require.Len(t, recs, 1)
	require.Equal(t, KindParse, recs[0].Kind)
	require.Equal(t, "a.bc", recs[0].Path)
}

func TestInitReporterResetsState(t *testing.T) {
	InitReporter(LogLevelSilent)
	ReportLinkError("boom")
	require.False(t, ShouldProceed())

	InitReporter(LogLevelSilent)
	require.True(t, ShouldProceed())
	require.Empty(t, Records())
}
