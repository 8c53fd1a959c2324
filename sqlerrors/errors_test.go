package sqlerrors_test

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlscript-io/sqlscript/sqlerrors"
)

func TestFormatArgsOmitsEmptyAndSortsKeys(t *testing.T) {
	out := sqlerrors.FormatArgs(map[string]string{"b": "2", "a": "1", "c": ""})
	assert.Contains(t, out, "a: 1")
	assert.Contains(t, out, "b: 2")
	assert.NotContains(t, out, "c:")
}

func TestStructuredErrorsUnwrapToSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"internal", &sqlerrors.InternalError{Name: "n", Msg: "m"}, sqlerrors.ErrInternal},
		{"invalid tags", &sqlerrors.InvalidTagsError{Raw: "x"}, sqlerrors.ErrInvalidTags},
		{"duplicate tag", &sqlerrors.DuplicateTagError{Name: "x", Count: 2}, sqlerrors.ErrDuplicateTag},
		{"not found", &sqlerrors.StatementNotFoundError{ID: 1}, sqlerrors.ErrStatementNotFound},
		{"execution", &sqlerrors.ExecutionError{Name: "x"}, sqlerrors.ErrExecution},
		{"post-processing", &sqlerrors.PostProcessingError{Name: "x"}, sqlerrors.ErrPostProcessing},
		{"qa-empty", &sqlerrors.QAEmptyFailure{Name: "x"}, sqlerrors.ErrQAFailure},
		{"qa-diff", &sqlerrors.QADiffFailure{Name: "x"}, sqlerrors.ErrQAFailure},
		{"qa-expect", &sqlerrors.QAExpectFailure{Name: "x"}, sqlerrors.ErrQAFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.want))
			assert.NotZero(t, tt.err.Error())
		})
	}
}

func TestRaisableShouldRaise(t *testing.T) {
	e := &sqlerrors.ExecutionError{Name: "x", ToRaise: true}

	var r sqlerrors.Raisable = e
	assert.True(t, r.ShouldRaise())

	e.ToRaise = false
	assert.False(t, r.ShouldRaise())
}
