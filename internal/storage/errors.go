// Package storage defines the persistence contracts for work items, notes,
// dependencies, and role transitions, plus the kind-tagged *Error type
// repositories return in place of panicking or returning bare errors.
package storage

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of repository failure categories. Tool
// handlers translate these 1:1 onto the MCP-surface error codes in
// spec.md §7.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NotFound"
	KindValidation ErrorKind = "Validation"
	KindConflict   ErrorKind = "Conflict"
	KindDatabase   ErrorKind = "Database"
	KindUnknown    ErrorKind = "Unknown"
)

// Sentinel errors a repository wraps its database-layer failures in. Callers
// use errors.Is against these, mirroring the teacher's
// internal/storage/sqlite/errors.go (ErrNotFound/ErrConflict/ErrCycle).
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrCycle      = errors.New("dependency cycle detected")
	ErrValidation = errors.New("validation failed")
)

// Error is the concrete error type returned across repository boundaries.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a domain Error, classifying the underlying error when kind
// is not already known by the caller.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classify maps a wrapped sentinel error onto an ErrorKind, the way the
// teacher's isNotFound/isConflict/isCycle helpers gate behavior on sentinel
// identity rather than string matching.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrCycle):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindDatabase
	}
}

// AsDomainError wraps a raw error into a domain *Error, classifying it via
// Classify unless it is already a *Error.
func AsDomainError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	kind := Classify(err)
	if kind == "" {
		kind = KindUnknown
	}
	return &Error{Kind: kind, Message: op, Err: err}
}
