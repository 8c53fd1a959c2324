// Package statement implements the Statement execution lifecycle (spec.md
// §4.5) and its QA variants (§4.6, §4.6.1): running one SQL statement
// against a warehouse connection, classifying the outcome, and optionally
// running a post-processing validation pass.
package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlscript-io/sqlscript/exception"
	"github.com/sqlscript-io/sqlscript/sqlerrors"
	"github.com/sqlscript-io/sqlscript/tabular"
	"github.com/sqlscript-io/sqlscript/tag"
	"github.com/sqlscript-io/sqlscript/warehouse"
)

// Outcome codes, spec.md §4.5.
const (
	OutcomeUnexecuted              = 0
	OutcomeExecutionError          = 1
	OutcomeExecutionComplete       = 2
	OutcomePostProcessingFailure   = -2
	OutcomePostProcessingSucceeded = -3
)

// Processor is implemented by every QA variant; the base Statement's
// Process is a no-op that never changes the outcome set by Run. A variant
// that fails validation (rather than erroring) collects its own typed
// QA*Failure into s.E, using onFailure to decide to_raise, and returns
// pass=false, err=nil; a Go error return means the variant itself raised
// while computing the result (spec.md's "post-processing exception").
type Processor interface {
	Process(ctx context.Context, s *Statement, onFailure string) (pass bool, err error)
}

// noopProcessor is the base class's process(): does nothing, never fails.
type noopProcessor struct{}

func (noopProcessor) Process(context.Context, *Statement, string) (bool, error) { return true, nil }

// Statement is one parsed, possibly-executed SQL statement.
type Statement struct {
	SQL         string
	AttrsRaw    string
	AttrsParsed tag.Attrs
	Tag         *tag.Tag

	Index  int // current, possibly renumbered by a filter context
	OrigIndex int // _index: the original, stable index

	Results *tabular.Table

	StartTime     time.Time
	EndTime       time.Time
	ExecutionTime time.Duration

	Outcome  int
	Executed bool

	E *exception.Handler

	Process Processor
}

// New builds an unexecuted Statement. proc is the QA variant's Processor,
// or nil for a plain statement.
func New(sql, attrsRaw string, attrs tag.Attrs, t *tag.Tag, index int, proc Processor) *Statement {
	if proc == nil {
		proc = noopProcessor{}
	}

	return &Statement{
		SQL: sql, AttrsRaw: attrsRaw, AttrsParsed: attrs, Tag: t,
		Index: index, OrigIndex: index,
		E:       exception.New(),
		Process: proc,
	}
}

// RunOptions configures one Run call, mirroring spec.md §4.5's
// run(results, lower, render, on_error, on_exception, on_failure, ctx_id).
type RunOptions struct {
	Conn warehouse.Conn

	Results bool // true: keep the returned Table in Results; false: run and discard it
	Lower   bool // lower-case result columns

	Render func(*Statement) error // external render capability (§6); nil to skip

	OnError     string // "c" continues past driver errors instead of raising
	OnException string // "c" continues past QA process() exceptions
	OnFailure   string // "c" continues past QA validation failures

	CtxID *int64
}

// Run executes the statement per spec.md §4.5. A statement excluded from
// the current scope is a no-op.
func (s *Statement) Run(ctx context.Context, opts RunOptions) error {
	if s.Tag != nil && !s.Tag.IsIncluded {
		return nil
	}

	if opts.CtxID != nil {
		if err := s.E.Set(*opts.CtxID, true, nil); err != nil {
			return err
		}
	}

	s.StartTime = time.Now()

	if opts.Results {
		table, err := opts.Conn.Exec(ctx, s.SQL)
		if err != nil {
			return s.recordExecutionError(err, opts.OnError)
		}

		if opts.Lower && table != nil {
			table = table.Lower()
		}

		s.Results = table
	} else if _, err := opts.Conn.Exec(ctx, s.SQL); err != nil {
		return s.recordExecutionError(err, opts.OnError)
	}

	s.Executed = true
	s.EndTime = time.Now()
	s.ExecutionTime = s.EndTime.Sub(s.StartTime)
	s.Outcome = OutcomeExecutionComplete

	if err := s.runProcess(ctx, opts); err != nil {
		return err
	}

	if opts.Render != nil {
		if err := opts.Render(s); err != nil {
			return err
		}
	}

	return nil
}

func (s *Statement) recordExecutionError(cause error, onError string) error {
	s.Outcome = OutcomeExecutionError

	name := "statement"
	if s.Tag != nil {
		name = s.Tag.Nm
	}

	execErr := &sqlerrors.ExecutionError{
		Name: name, Index: s.Index, Cause: cause, ToRaise: onError != "c",
	}

	s.E.Collect(execErr)

	if execErr.ShouldRaise() {
		return execErr
	}

	return nil
}

// runProcess invokes the statement's Processor and applies the 2→-3/-2
// transition, raising unless on_exception/on_failure opt into continuing.
func (s *Statement) runProcess(ctx context.Context, opts RunOptions) error {
	if _, isBase := s.Process.(noopProcessor); isBase {
		return nil
	}

	pass, err := s.Process.Process(ctx, s, opts.OnFailure)

	name := "statement"
	if s.Tag != nil {
		name = s.Tag.Nm
	}

	if err != nil {
		s.Outcome = OutcomePostProcessingFailure

		ppErr := &sqlerrors.PostProcessingError{
			Name: name, Index: s.Index, Cause: err, ToRaise: opts.OnException != "c",
		}

		s.E.Collect(ppErr)

		if ppErr.ShouldRaise() {
			return ppErr
		}

		return nil
	}

	if pass {
		s.Outcome = OutcomePostProcessingSucceeded
		return nil
	}

	s.Outcome = OutcomePostProcessingFailure

	last, lastErr := s.E.Get(exception.Query{FromCtx: ctxIDPtr(s)}, true)
	if lastErr != nil || len(last) == 0 {
		return nil
	}

	if raisable, ok := last[0].(sqlerrors.Raisable); ok && raisable.ShouldRaise() {
		return last[0]
	}

	return nil
}

func ctxIDPtr(s *Statement) *int64 {
	id, ok := s.E.CtxID()
	if !ok {
		return nil
	}

	return &id
}

// HumanExecutionTime renders ExecutionTime the way spec.md §4.5 describes:
// seconds if under a minute, otherwise minutes.
func (s *Statement) HumanExecutionTime() string {
	if s.ExecutionTime < time.Minute {
		return fmt.Sprintf("%.3fs", s.ExecutionTime.Seconds())
	}

	return fmt.Sprintf("%.2fm", s.ExecutionTime.Minutes())
}
