package entities

import (
	"errors"
	"fmt"
)

// FailureKind is the closed set of ways a browser step can fail.
type FailureKind string

const (
	FailureTimeout         FailureKind = "timeout"
	FailureElementNotFound FailureKind = "element_not_found"
	FailureNavigation      FailureKind = "navigation"
	FailureUnknown         FailureKind = "unknown"
)

var (
	ErrTimeout         = errors.New("timed out waiting for page")
	ErrElementNotFound = errors.New("element not found")
	ErrNavigation      = errors.New("navigation failed")
)

// AutomationError wraps a driver error with the step that produced it.
type AutomationError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *AutomationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the sentinel that corresponds to Kind.
func (e *AutomationError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == FailureTimeout
	case ErrElementNotFound:
		return e.Kind == FailureElementNotFound
	case ErrNavigation:
		return e.Kind == FailureNavigation
	}
	return false
}

// NewAutomationError builds an AutomationError for op.
func NewAutomationError(kind FailureKind, op string, err error) *AutomationError {
	return &AutomationError{Kind: kind, Op: op, Err: err}
}

// ClassifyFailure maps err onto the failure taxonomy.
func ClassifyFailure(err error) FailureKind {
	var ae *AutomationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return FailureTimeout
	case errors.Is(err, ErrElementNotFound):
		return FailureElementNotFound
	case errors.Is(err, ErrNavigation):
		return FailureNavigation
	case errors.As(err, &ae):
		return ae.Kind
	}
	return FailureUnknown
}
