package report_test

import (
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/fatih/color"

	"github.com/sqlscript-io/sqlscript/report"
	"github.com/sqlscript-io/sqlscript/statement"
)

func newOutcomeStatement(outcome int) *statement.Statement {
	s := statement.New("select 1", "", nil, nil, 1, nil)
	s.Outcome = outcome

	return s
}

func TestLineReportsEachOutcomeLabel(t *testing.T) {
	color.NoColor = true

	cases := []struct {
		outcome int
		label   string
	}{
		{statement.OutcomeUnexecuted, "SKIP"},
		{statement.OutcomeExecutionError, "ERROR"},
		{statement.OutcomeExecutionComplete, "OK"},
		{statement.OutcomePostProcessingSucceeded, "PASS"},
		{statement.OutcomePostProcessingFailure, "FAIL"},
	}

	for _, tc := range cases {
		var b strings.Builder
		report.Line(&b, "load orders", newOutcomeStatement(tc.outcome))

		assert.True(t, strings.Contains(b.String(), tc.label))
		assert.True(t, strings.Contains(b.String(), "load orders"))
	}
}

func TestSummaryCountsByOutcomeBucket(t *testing.T) {
	color.NoColor = true

	statements := []*statement.Statement{
		newOutcomeStatement(statement.OutcomeUnexecuted),
		newOutcomeStatement(statement.OutcomeExecutionError),
		newOutcomeStatement(statement.OutcomePostProcessingFailure),
		newOutcomeStatement(statement.OutcomePostProcessingSucceeded),
	}

	var b strings.Builder
	report.Summary(&b, statements)

	out := b.String()
	assert.True(t, strings.Contains(out, "4 statements"))
	assert.True(t, strings.Contains(out, "1 passed"))
	assert.True(t, strings.Contains(out, "2 failed"))
	assert.True(t, strings.Contains(out, "1 skipped"))
}
