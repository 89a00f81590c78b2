package report

import (
	"fmt"
	"os"
)

// -----------------------------------------------------------------------------
// NOTE: All report functions will only display if the appropriate log level
// is set.  Most report functions will simply fail silently if below their
// appropriate log level; the record is still collected either way.

// ReportParseError reports a fatal problem with an input file: malformed
// bitcode, a missing bitcode section, or an unrecognized file type.
func ReportParseError(path, msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityError,
		Kind:     KindParse,
		Message:  fmt.Sprintf(msg, args...),
		Path:     path,
	})
}

// ReportLinkError reports a symbol conflict or resolution failure while
// merging modules.
func ReportLinkError(msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityError,
		Kind:     KindLink,
		Message:  fmt.Sprintf(msg, args...),
	})
}

// ReportTransformWarning reports a non-fatal problem encountered while
// rewriting debug metadata.
func ReportTransformWarning(msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityWarning,
		Kind:     KindTransform,
		Message:  fmt.Sprintf(msg, args...),
	})
}

// ReportCodegenError reports an invalid target machine configuration or a
// backend failure.
func ReportCodegenError(msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityError,
		Kind:     KindCodegen,
		Message:  fmt.Sprintf(msg, args...),
	})
}

// ReportIOError reports a read or write failure at the filesystem boundary.
func ReportIOError(path string, err error) {
	rep.handleRecord(Record{
		Severity: SeverityError,
		Kind:     KindIO,
		Message:  err.Error(),
		Path:     path,
	})
}

// ReportBackendMessage forwards a diagnostic produced by the LLVM backend.
func ReportBackendMessage(severity Severity, msg string) {
	rep.handleRecord(Record{
		Severity: severity,
		Kind:     KindBackend,
		Message:  msg,
	})
}

// ReportWarning reports a general, non-fatal linker warning.
func ReportWarning(msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityWarning,
		Kind:     KindGeneral,
		Message:  fmt.Sprintf(msg, args...),
	})
}

// ReportInfo reports a progress message.  Only displayed at the verbose log
// level.
func ReportInfo(msg string, args ...interface{}) {
	rep.handleRecord(Record{
		Severity: SeverityInfo,
		Kind:     KindGeneral,
		Message:  fmt.Sprintf(msg, args...),
	})
}

// ReportFatal reports a fatal error and exits the program.  These are
// expected errors that generally result from invalid configuration of some
// form: an unwritable output path, a missing input, etc.
func ReportFatal(msg string, args ...interface{}) {
	rep.errorCount++

	displayFatal(fmt.Sprintf(msg, args...))

	os.Exit(1)
}

// -----------------------------------------------------------------------------

// ReportLinkHeader reports the pre-link header: information about the
// linker's current configuration.  Only displayed at the verbose log level.
func ReportLinkHeader(triple, cpu string) {
	if rep.logLevel == LogLevelVerbose {
		displayLinkHeader(triple, cpu)
	}
}

// ReportLinkFinished replays all buffered warnings and reports the
// concluding message for the run.
func ReportLinkFinished(outputPath string) {
	if rep.logLevel >= LogLevelWarn {
		for _, warning := range rep.warnings {
			displayRecord(warning)
		}
	}

	if rep.logLevel == LogLevelVerbose {
		displayLinkFinished(ShouldProceed(), outputPath, rep.startTime)
	}
}
