// Package report implements the diagnostics sink for the linker.  Every
// pipeline stage, and the LLVM backend itself, reports through this package;
// it classifies messages by severity, buffers them in arrival order, and
// exposes the final pass/fail verdict of the run.
package report

import (
	"sync"
	"time"
)

// Severity classifies how serious a diagnostic record is.
type Severity int

// Enumeration of diagnostic severities.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// Kind identifies which part of the pipeline a diagnostic originated from.
type Kind int

// Enumeration of diagnostic kinds.
const (
	KindParse     Kind = iota // malformed or missing bitcode in an input
	KindLink                  // symbol conflicts, unresolved externals
	KindTransform             // debug-metadata problems during fixup
	KindCodegen               // target machine or backend failures
	KindIO                    // read/write failures at the boundary
	KindBackend               // messages forwarded from the LLVM backend
	KindGeneral               // everything else (configuration, progress)
)

var kindLabels = map[Kind]string{
	KindParse:     "Parse",
	KindLink:      "Link",
	KindTransform: "Transform",
	KindCodegen:   "Codegen",
	KindIO:        "IO",
	KindBackend:   "LLVM",
	KindGeneral:   "Linker",
}

// Record is a single collected diagnostic.
type Record struct {
	Severity Severity
	Kind     Kind
	Message  string

	// Path is the input or output file the record refers to, if any.
	Path string
}

// reporter collects diagnostic records for the duration of a run.  It is
// synchronized so backend callbacks can report from foreign threads.
type reporter struct {
	// The mutex used to synchronize the report methods.
	m *sync.Mutex

	// The selected log level.  This must be one of the enumerated log
	// levels below.
	logLevel int

	// records holds every received record in arrival order.
	records []Record

	// warnings are buffered and replayed when the run finishes.
	warnings []Record

	// errorCount is the number of error-severity records received.
	errorCount int

	startTime time.Time
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays warnings and errors to the user.
	LogLevelVerbose        // Displays all messages to the user (default).
)

// rep is a global reference to the shared reporter.
var rep reporter

// InitReporter initializes the global reporter with the provided log level.
func InitReporter(logLevel int) {
	rep = reporter{
		m:         &sync.Mutex{},
		logLevel:  logLevel,
		startTime: time.Now(),
	}
}

// handleRecord classifies and buffers a record, displaying it immediately if
// the log level allows.  Errors display as they happen; warnings are held
// until the end of the run so they don't interleave with progress output.
func (r *reporter) handleRecord(rec Record) {
	r.m.Lock()
	defer r.m.Unlock()

	r.records = append(r.records, rec)

	switch rec.Severity {
	case SeverityError:
		r.errorCount++
		if r.logLevel >= LogLevelError {
			displayRecord(rec)
		}
	case SeverityWarning:
		r.warnings = append(r.warnings, rec)
	case SeverityInfo:
		if r.logLevel >= LogLevelVerbose {
			displayRecord(rec)
		}
	}
}

// ShouldProceed indicates whether or not an error has been reported that
// should cause the pipeline to stop at the current stage boundary.
func ShouldProceed() bool {
	return rep.errorCount == 0
}

// Records returns all records received so far in arrival order.
func Records() []Record {
	return rep.records
}
