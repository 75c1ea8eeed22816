package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error produced by the pipeline is a *Error whose Kind is one of
// these sentinels, so callers can branch with errors.Is without inspecting messages.
var (
	// ErrConnection is returned when a connection cannot be opened or closed, or a
	// transaction cannot be started on it.
	ErrConnection = errors.New("connection error")

	// ErrBinding is returned when statement parameters do not match the placeholders
	// in the SQL text. It is always detected before any connection is opened.
	ErrBinding = errors.New("binding error")

	// ErrStatement is returned when the driver rejects a statement during execution
	ErrStatement = errors.New("statement error")

	// ErrMapping is returned when a row cannot be converted into a result value
	ErrMapping = errors.New("mapping error")

	// ErrTransaction is returned when a commit or rollback fails, or when the
	// transaction scope is driven through an invalid transition.
	ErrTransaction = errors.New("transaction error")

	// ErrCardinality is returned by single-value operations that observe zero or
	// more than one row.
	ErrCardinality = errors.New("cardinality error")
)

// Transaction scope contract violations, wrapped inside an ErrTransaction *Error.
var (
	ErrTxDone      = errors.New("transaction has already been committed or rolled back")
	ErrTxNotActive = errors.New("transaction is not active")
)

// Stage names the step of a pipeline invocation at which an error occurred.
type Stage string

const (
	StageConnect  Stage = "connect"
	StageBind     Stage = "bind"
	StageExecute  Stage = "execute"
	StageMap      Stage = "map"
	StageBegin    Stage = "begin"
	StageCommit   Stage = "commit"
	StageRollback Stage = "rollback"
	StageClose    Stage = "close"
)

// Error is the typed error surfaced by every pipeline operation.
//
// Cleanup holds failures that happened while driving the invocation to a terminal
// state after Cause (a failed rollback, a failed close). They are reported alongside
// Cause and are reachable through errors.Is and errors.As.
type Error struct {
	Kind    error
	Stage   Stage
	Cause   error
	Cleanup []error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("pipeline ")
	b.WriteString(string(e.Stage))
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	for _, c := range e.Cleanup {
		b.WriteString("; ")
		b.WriteString(c.Error())
	}
	return b.String()
}

// Unwrap exposes the kind sentinel, the cause and every cleanup failure.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2+len(e.Cleanup))
	out = append(out, e.Kind)
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return append(out, e.Cleanup...)
}

func newError(kind error, stage Stage, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Cause: cause}
}

// KindOf returns the primary kind of a pipeline error, or nil if err did not
// originate in the pipeline. Unlike errors.Is it ignores kinds carried by cleanup
// failures.
func KindOf(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return nil
}

// StageOf returns the stage at which a pipeline error occurred
func StageOf(err error) (Stage, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage, true
	}
	return "", false
}

// withCleanup attaches cleanup failures to cause. A nil cause with cleanup failures
// promotes the first failure to the primary error.
func withCleanup(cause error, cleanup []error) error {
	if len(cleanup) == 0 {
		return cause
	}
	if cause == nil {
		first := asPipelineError(cleanup[0], ErrConnection, StageClose)
		first.Cleanup = append(first.Cleanup, cleanup[1:]...)
		return first
	}
	pe := asPipelineError(cause, ErrStatement, StageExecute)
	pe.Cleanup = append(pe.Cleanup, cleanup...)
	return pe
}

// asPipelineError returns err as a *Error, wrapping foreign errors with the given
// kind and stage.
func asPipelineError(err error, kind error, stage Stage) *Error {
	var pe *Error
	if errors.As(err, &pe) && pe == err {
		return pe
	}
	return newError(kind, stage, err)
}

func cardinalityError(n int) *Error {
	if n == 0 {
		return newError(ErrCardinality, StageMap, errors.New("expected exactly one row, got none"))
	}
	return newError(ErrCardinality, StageMap, fmt.Errorf("expected exactly one row, got at least %d", n))
}
