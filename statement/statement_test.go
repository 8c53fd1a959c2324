package statement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/exception"
	"github.com/sqlscript-io/sqlscript/sqlerrors"
	"github.com/sqlscript-io/sqlscript/statement"
	"github.com/sqlscript-io/sqlscript/tabular"
	"github.com/sqlscript-io/sqlscript/tag"
)

type fakeConn struct {
	table *tabular.Table
	err   error
}

func (f *fakeConn) Exec(context.Context, string) (*tabular.Table, error) { return f.table, f.err }
func (f *fakeConn) Close() error                                         { return nil }

func newTag() *tag.Tag {
	return tag.New(config.Default(), "", "select 1", 1)
}

func TestRunSuccessfulStatementReachesExecutionComplete(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.NoError(t, err)
	assert.True(t, s.Executed)
	assert.Equal(t, statement.OutcomeExecutionComplete, s.Outcome)
}

func TestRunSkipsExcludedStatement(t *testing.T) {
	conn := &fakeConn{table: tabular.New(nil, nil)}
	tg := newTag()
	tg.IsIncluded = false

	s := statement.New("select 1", "", nil, tg, 1, nil)

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.NoError(t, err)
	assert.False(t, s.Executed)
	assert.Equal(t, statement.OutcomeUnexecuted, s.Outcome)
}

func TestRunRaisesExecutionErrorByDefault(t *testing.T) {
	conn := &fakeConn{err: errors.New("boom")}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.Error(t, err)

	var execErr *sqlerrors.ExecutionError
	assert.True(t, errors.As(err, &execErr))
	assert.Equal(t, statement.OutcomeExecutionError, s.Outcome)
}

func TestRunContinuesPastExecutionErrorWhenOnErrorIsC(t *testing.T) {
	conn := &fakeConn{err: errors.New("boom")}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true, OnError: "c"})
	assert.NoError(t, err)
	assert.Equal(t, statement.OutcomeExecutionError, s.Outcome)
	assert.True(t, s.E.Seen(exception.Query{AllTime: true}))
}

func TestRunLowersResultColumnsWhenRequested(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"Name"}, []map[string]any{{"Name": "x"}})}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true, Lower: true})
	assert.NoError(t, err)
	assert.Equal(t, []string{"name"}, s.Results.Columns)
}

func TestRunInvokesRenderAfterProcessing(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	var rendered *statement.Statement

	err := s.Run(t.Context(), statement.RunOptions{
		Conn: conn, Results: true,
		Render: func(st *statement.Statement) error { rendered = st; return nil },
	})
	assert.NoError(t, err)
	assert.Equal(t, s, rendered)
}

type failingProcessor struct{ err error }

func (f failingProcessor) Process(context.Context, *statement.Statement, string) (bool, error) {
	return false, f.err
}

func TestRunRaisesPostProcessingErrorWhenProcessReturnsGoError(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, failingProcessor{err: errors.New("qa blew up")})

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.Error(t, err)

	var ppErr *sqlerrors.PostProcessingError
	assert.True(t, errors.As(err, &ppErr))
	assert.Equal(t, statement.OutcomePostProcessingFailure, s.Outcome)
}

func TestRunContinuesPastPostProcessingErrorWhenOnExceptionIsC(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, failingProcessor{err: errors.New("qa blew up")})

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true, OnException: "c"})
	assert.NoError(t, err)
	assert.Equal(t, statement.OutcomePostProcessingFailure, s.Outcome)
}

func TestRunRaisesCollectedFailureWhenProcessFails(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, []map[string]any{{"n": 1}})}
	s := statement.New("select 1", "", nil, newTag(), 1, statement.Empty{})

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.Error(t, err)

	var qaErr *sqlerrors.QAEmptyFailure
	assert.True(t, errors.As(err, &qaErr))
	assert.Equal(t, statement.OutcomePostProcessingFailure, s.Outcome)
}

type passProcessor struct{}

func (passProcessor) Process(context.Context, *statement.Statement, string) (bool, error) {
	return true, nil
}

func TestRunSucceedsPostProcessingWhenProcessPasses(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, passProcessor{})

	err := s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true})
	assert.NoError(t, err)
	assert.Equal(t, statement.OutcomePostProcessingSucceeded, s.Outcome)
}

func TestHumanExecutionTimeFormatsSecondsUnderAMinute(t *testing.T) {
	conn := &fakeConn{table: tabular.New([]string{"n"}, nil)}
	s := statement.New("select 1", "", nil, newTag(), 1, nil)

	assert.NoError(t, s.Run(t.Context(), statement.RunOptions{Conn: conn, Results: true}))
	assert.True(t, len(s.HumanExecutionTime()) > 0)
}
