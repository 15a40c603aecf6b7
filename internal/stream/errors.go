package stream

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to the front-end.
type Kind string

// Error kinds.
const (
	KindInvalidConfig      Kind = "InvalidConfig"      // bad user input, never retried
	KindStartupTimeout     Kind = "StartupTimeout"     // media server never became ready
	KindSessionCollapsed   Kind = "SessionCollapsed"   // a child exited unexpectedly
	KindTerminationFailure Kind = "TerminationFailure" // a child survived the forced kill
)

// Error represents a domain-specific error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause == nil:
		return string(e.Kind)
	case e.Cause == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

// Sentinels for errors.Is.
var (
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
	ErrStartupTimeout     = &Error{Kind: KindStartupTimeout}
	ErrSessionCollapsed   = &Error{Kind: KindSessionCollapsed}
	ErrTerminationFailure = &Error{Kind: KindTerminationFailure}
)

// NewError creates a new domain error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// invalid is shorthand for an InvalidConfig error with a formatted message.
func invalid(format string, args ...any) *Error {
	return NewError(KindInvalidConfig, fmt.Sprintf(format, args...), nil)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
