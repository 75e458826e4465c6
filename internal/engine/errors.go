package engine

import (
	"errors"
	"fmt"
)

// Every step-level failure belongs to one of these kinds. All of them
// are fatal to the failing step only: the runner downgrades them to a
// FAIL StepResult and the continuation policy decides whether the run
// goes on.

// ErrUnknownAction marks a step whose action tag the interpreter does
// not recognize.
var ErrUnknownAction = errors.New("unknown action")

// ErrNoResponse marks a validate/measure step that ran before any
// request captured a response.
var ErrNoResponse = errors.New("no response has been captured yet")

// ElementNotFoundError reports a bounded element lookup that timed out.
type ElementNotFoundError struct {
	Selector string
}

func (e *ElementNotFoundError) Error() string {
	return fmt.Sprintf("element not found: %s", e.Selector)
}

// AssertionError reports a validation or check step whose condition was
// false.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return e.Msg }

func assertionf(format string, args ...any) *AssertionError {
	return &AssertionError{Msg: fmt.Sprintf(format, args...)}
}

// ProviderError reports that the underlying browser or HTTP call itself
// errored.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
