package report

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"bpflink/common"
)

var (
	successColorFG = pterm.FgLightGreen
	successStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	warnColorFG    = pterm.FgYellow
	warnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	errorColorFG   = pterm.FgRed
	errorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	infoColorFG    = pterm.FgLightCyan
)

// displayRecord displays a single diagnostic record with a tag naming its
// kind and severity.
func displayRecord(rec Record) {
	label := kindLabels[rec.Kind]

	msg := rec.Message
	if rec.Path != "" {
		msg = fmt.Sprintf("`%s`: %s", rec.Path, msg)
	}

	switch rec.Severity {
	case SeverityError:
		errorStyleBG.Print(label + " Error")
		errorColorFG.Println(" " + msg)
	case SeverityWarning:
		warnStyleBG.Print(label + " Warning")
		warnColorFG.Println(" " + msg)
	default:
		infoColorFG.Println(msg)
	}
}

// displayFatal displays a fatal error message.
func displayFatal(message string) {
	errorStyleBG.Print("Fatal Error")
	errorColorFG.Println(" " + message)
}

// displayLinkHeader displays the banner on top of a verbose link run.
func displayLinkHeader(triple, cpu string) {
	fmt.Println(common.LinkerID)
	fmt.Printf("target: %s, cpu: %s\n\n", triple, cpu)
}

// displayLinkFinished displays information about the end of the run.
func displayLinkFinished(ok bool, outputPath string, startTime time.Time) {
	fmt.Println()

	if ok {
		successStyleBG.Print("Done")
		successColorFG.Printf(" wrote %s (%.3fs)\n", outputPath, time.Since(startTime).Seconds())
	} else {
		errorStyleBG.Print("Failed")
		errorColorFG.Printf(" no output written (%.3fs)\n", time.Since(startTime).Seconds())
	}
}
