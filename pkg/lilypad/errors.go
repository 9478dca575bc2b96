package lilypad

import (
	"errors"
	"fmt"
)

// Sentinel errors for pattern parsing and compilation.
var (
	// ErrEmptyPattern indicates the rhythm pattern contains no symbols.
	ErrEmptyPattern = errors.New("pattern has no symbols")

	// ErrInvalidSymbol indicates a malformed trim or route symbol (T0, M()).
	ErrInvalidSymbol = errors.New("invalid pattern symbol")

	// ErrArityMismatch indicates the segment list is longer than the
	// number of non-trim symbols in the pattern.
	ErrArityMismatch = errors.New("pattern and segment count mismatch")

	// ErrPatternExhausted indicates a non-trim symbol had no segment left to claim.
	ErrPatternExhausted = errors.New("pattern needs more segments")

	// ErrContractViolation indicates a segment reads a key no earlier step produces.
	ErrContractViolation = errors.New("segment contract violation")
)

// Sentinel errors for execution and tracing.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNodeNotFound indicates an alignment node id does not exist.
	ErrNodeNotFound = errors.New("alignment node not found")
)

// ArityError describes a mismatch between a pattern and its segments.
type ArityError struct {
	// Symbols is the number of non-trim symbols in the pattern.
	Symbols int
	// Segments is the number of user segments supplied.
	Segments int
	// Symbol is the symbol that ran out of segments, empty for surplus segments.
	Symbol string
	// Err is ErrPatternExhausted or ErrArityMismatch.
	Err error
}

// Error implements the error interface.
func (e *ArityError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%v (stuck at %s): %d non-trim symbols, %d segments", e.Err, e.Symbol, e.Symbols, e.Segments)
	}
	return fmt.Sprintf("%v: %d non-trim symbols, %d segments", e.Err, e.Symbols, e.Segments)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *ArityError) Unwrap() error {
	return e.Err
}

// StepError wraps a segment failure with its position in the pipeline.
// Only top-level invocations (Pipeline.Run, Runner.Run) produce it;
// Compose returns segment errors untouched.
type StepError struct {
	// Index is the zero-based position of the failed step.
	Index int
	// Label is the rhythm symbol or segment name of the failed step.
	Label string
	// Err is the error returned by the segment.
	Err error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Label, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a segment.
type PanicError struct {
	// Segment is the name of the segment that panicked.
	Segment string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("segment %s panicked: %v", e.Segment, e.Value)
}

// CancellationError reports that the caller's context ended between steps.
type CancellationError struct {
	// Segment is the segment that was about to run.
	Segment string
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before segment %s: %v", e.Segment, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}
