// Package sqlerrors holds the error taxonomy shared by every other package
// in this module: sentinel values for errors.Is checks, and structured error
// types for the ones that carry contextual fields.
package sqlerrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors. Structured error types below wrap one of these so that
// errors.Is(err, ErrQAFailure) succeeds regardless of which QA variant
// produced it.
var (
	// ErrInternal indicates a contract violation inside the engine itself
	// (e.g. reusing a context id). Never recoverable.
	ErrInternal = errors.New("internal error")
	// ErrInvalidTags indicates a malformed or missing-required-field tag block.
	ErrInvalidTags = errors.New("invalid tag block")
	// ErrDuplicateTag indicates a name-keyed lookup hit more than one statement.
	ErrDuplicateTag = errors.New("duplicate tag name")
	// ErrStatementNotFound indicates a lookup by index or name missed.
	ErrStatementNotFound = errors.New("statement not found")
	// ErrExecution indicates the driver raised during Statement.Run.
	ErrExecution = errors.New("execution error")
	// ErrPostProcessing indicates a QA variant's Process() raised.
	ErrPostProcessing = errors.New("post-processing error")
	// ErrQAFailure indicates a QA variant's Process() returned a failing outcome.
	ErrQAFailure = errors.New("qa failure")
)

// FormatArgs renders a set of contextual key/value pairs as an aligned,
// indented block suitable for appending below a one-line error message.
// Mirrors the teacher corpus's convention of attaching aligned context to
// errors rather than inlining everything into one sentence.
func FormatArgs(kv map[string]string) string {
	keys := make([]string, 0, len(kv))

	longest := 0

	for k, v := range kv {
		if v == "" {
			continue
		}

		keys = append(keys, k)

		if len(k) > longest {
			longest = len(k)
		}
	}

	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("\t%s: %s", strings.Repeat(" ", longest-len(k))+k, kv[k]))
	}

	return strings.Join(lines, "\n")
}

// InternalError reports a violation of an invariant the engine itself owns.
type InternalError struct {
	Name string
	Msg  string
}

func (e *InternalError) Error() string {
	args := FormatArgs(map[string]string{"name": e.Name, "msg": e.Msg})
	return fmt.Sprintf("internal error\n%s", args)
}

func (e *InternalError) Unwrap() error { return ErrInternal }

// InvalidTagsError reports a malformed tag block encountered at parse time.
type InvalidTagsError struct {
	Raw    string
	Reason string
}

func (e *InvalidTagsError) Error() string {
	args := FormatArgs(map[string]string{"reason": e.Reason, "raw": e.Raw})
	return fmt.Sprintf("invalid tag block\n%s", args)
}

func (e *InvalidTagsError) Unwrap() error { return ErrInvalidTags }

// DuplicateTagError reports a name-keyed lookup against statements sharing a name.
type DuplicateTagError struct {
	Name  string
	Count int
}

func (e *DuplicateTagError) Error() string {
	args := FormatArgs(map[string]string{"name": e.Name, "count": fmt.Sprintf("%d", e.Count)})
	return fmt.Sprintf("duplicate tag name\n%s", args)
}

func (e *DuplicateTagError) Unwrap() error { return ErrDuplicateTag }

// StatementNotFoundError reports a missed lookup by index or name.
type StatementNotFoundError struct {
	ID any
}

func (e *StatementNotFoundError) Error() string {
	return fmt.Sprintf("statement not found\n%s", FormatArgs(map[string]string{"id": fmt.Sprintf("%v", e.ID)}))
}

func (e *StatementNotFoundError) Unwrap() error { return ErrStatementNotFound }

// ExecutionError reports a driver failure during Statement.Run.
type ExecutionError struct {
	Name    string
	Index   int
	Cause   error
	ToRaise bool
}

func (e *ExecutionError) Error() string {
	args := FormatArgs(map[string]string{
		"name": e.Name, "index": fmt.Sprintf("%d", e.Index), "cause": fmt.Sprintf("%v", e.Cause),
	})
	return fmt.Sprintf("execution error\n%s", args)
}

func (e *ExecutionError) Unwrap() error { return ErrExecution }

// ShouldRaise reports whether the ExceptionHandler should re-raise this
// error after collecting it, per spec.md §4.5's on_error handling.
func (e *ExecutionError) ShouldRaise() bool { return e.ToRaise }

// PostProcessingError reports an exception raised from within a QA variant's Process().
type PostProcessingError struct {
	Name    string
	Index   int
	Cause   error
	ToRaise bool
}

func (e *PostProcessingError) Error() string {
	args := FormatArgs(map[string]string{
		"name": e.Name, "index": fmt.Sprintf("%d", e.Index), "cause": fmt.Sprintf("%v", e.Cause),
	})
	return fmt.Sprintf("post-processing error\n%s", args)
}

func (e *PostProcessingError) Unwrap() error { return ErrPostProcessing }

// ShouldRaise reports whether the ExceptionHandler should re-raise this error.
func (e *PostProcessingError) ShouldRaise() bool { return e.ToRaise }

// QAEmptyFailure reports a qa-empty statement whose result set was non-empty.
type QAEmptyFailure struct {
	Name    string
	Index   int
	Rows    int
	ToRaise bool
}

func (e *QAEmptyFailure) Error() string {
	args := FormatArgs(map[string]string{
		"name": e.Name, "index": fmt.Sprintf("%d", e.Index), "rows": fmt.Sprintf("%d", e.Rows),
	})
	return fmt.Sprintf("qa-empty failure: expected zero rows\n%s", args)
}

func (e *QAEmptyFailure) Unwrap() error { return ErrQAFailure }

// ShouldRaise reports whether the ExceptionHandler should re-raise this error.
func (e *QAEmptyFailure) ShouldRaise() bool { return e.ToRaise }

// QADiffFailure reports a qa-diff statement whose partitions disagreed beyond tolerance.
type QADiffFailure struct {
	Name       string
	Index      int
	Column     string
	PartitionA string
	PartitionB string
	MaxAbs     string
	MaxRel     string
	ToRaise    bool
}

func (e *QADiffFailure) Error() string {
	args := FormatArgs(map[string]string{
		"name": e.Name, "index": fmt.Sprintf("%d", e.Index), "column": e.Column,
		"partitions": fmt.Sprintf("%s vs %s", e.PartitionA, e.PartitionB),
		"max_abs":    e.MaxAbs, "max_rel": e.MaxRel,
	})
	return fmt.Sprintf("qa-diff failure: tolerance exceeded\n%s", args)
}

func (e *QADiffFailure) Unwrap() error { return ErrQAFailure }

// ShouldRaise reports whether the ExceptionHandler should re-raise this error.
func (e *QADiffFailure) ShouldRaise() bool { return e.ToRaise }

// QAExpectFailure reports a qa-expect statement whose row count or column
// values didn't match the configured expectation.
type QAExpectFailure struct {
	Name    string
	Index   int
	Reason  string
	ToRaise bool
}

func (e *QAExpectFailure) Error() string {
	args := FormatArgs(map[string]string{
		"name": e.Name, "index": fmt.Sprintf("%d", e.Index), "reason": e.Reason,
	})
	return fmt.Sprintf("qa-expect failure\n%s", args)
}

func (e *QAExpectFailure) Unwrap() error { return ErrQAFailure }

// ShouldRaise reports whether the ExceptionHandler should re-raise this error.
func (e *QAExpectFailure) ShouldRaise() bool { return e.ToRaise }

// Raisable is implemented by every structured error type above; the
// ExceptionHandler uses it to decide whether a collected error should be
// re-raised once the current context unwinds.
type Raisable interface {
	error
	ShouldRaise() bool
}
