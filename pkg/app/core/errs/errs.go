// Package errs defines the failure taxonomy shared by every exchange component.
//
// A failure carries a Class, so callers can tell a stale order ("sign a fresh
// one") from a malformed request, and a Reason, which is the protocol-facing
// message such as "Order: Wrong sides".
package errs

import (
	"errors"
	"fmt"
)

type Class int

const (
	Internal Class = iota
	Structural
	Authorization
	Staleness
	Ineligible
	Configuration
)

func (c Class) String() string {
	switch c {
	case Structural:
		return "structural"
	case Authorization:
		return "authorization"
	case Staleness:
		return "staleness"
	case Ineligible:
		return "ineligible"
	case Configuration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error is a classified failure. Package-level sentinels are compared with
// errors.Is; detail is attached by wrapping them.
type Error struct {
	Class  Class
	Reason string
}

func New(class Class, reason string) *Error {
	return &Error{Class: class, Reason: reason}
}

func (e *Error) Error() string { return e.Reason }

// With wraps e with extra context while keeping errors.Is(err, e) true.
func (e *Error) With(format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}

// ClassOf returns the class of the first *Error in err's chain, or Internal.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return Internal
}

// ReasonOf returns the protocol reason of err, falling back to err.Error().
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
