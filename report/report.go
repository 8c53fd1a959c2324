// Package report renders a colorized run summary to a terminal, the ambient
// reporting surface referenced but never specified by spec.md — styled
// after the teacher corpus's use of fatih/color for status output.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sqlscript-io/sqlscript/statement"
)

var (
	ok      = color.New(color.FgGreen, color.Bold)
	failed  = color.New(color.FgRed, color.Bold)
	skipped = color.New(color.FgYellow)
	dim     = color.New(color.Faint)
)

// Line writes one statement's outcome as a single colorized summary line.
func Line(w io.Writer, name string, st *statement.Statement) {
	switch st.Outcome {
	case statement.OutcomeUnexecuted:
		skipped.Fprint(w, "SKIP ")
	case statement.OutcomeExecutionError:
		failed.Fprint(w, "ERROR")
	case statement.OutcomeExecutionComplete:
		ok.Fprint(w, "OK   ")
	case statement.OutcomePostProcessingSucceeded:
		ok.Fprint(w, "PASS ")
	case statement.OutcomePostProcessingFailure:
		failed.Fprint(w, "FAIL ")
	}

	fmt.Fprintf(w, " %s", name)
	dim.Fprintf(w, "  (%s)\n", st.HumanExecutionTime())
}

// Summary writes an aggregate line across every run statement.
func Summary(w io.Writer, statements []*statement.Statement) {
	var passed, failedCount, skippedCount int

	for _, st := range statements {
		switch st.Outcome {
		case statement.OutcomeUnexecuted:
			skippedCount++
		case statement.OutcomeExecutionError, statement.OutcomePostProcessingFailure:
			failedCount++
		default:
			passed++
		}
	}

	fmt.Fprintf(w, "%d statements: ", len(statements))
	ok.Fprintf(w, "%d passed", passed)
	fmt.Fprint(w, ", ")
	failed.Fprintf(w, "%d failed", failedCount)
	fmt.Fprint(w, ", ")
	skipped.Fprintf(w, "%d skipped\n", skippedCount)
}
