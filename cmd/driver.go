// Package cmd is the top-level "driver" package for the linker: it contains
// the functionality for parsing command-line arguments and link profiles and
// for kicking off the link pipeline.
package cmd

import (
	"bpflink/link"
	"bpflink/report"
)

// RunLinker is the main entry point for the linker.  This should be called
// directly from main; the return value is the process exit code.
func RunLinker() int {
	// Build the link configuration from the given command-line arguments.
	cfg := newConfigFromArgs()

	report.InitReporter(cfg.logLevel)

	if !link.NewLinker(cfg.opts).Link() {
		return 1
	}

	return 0
}
