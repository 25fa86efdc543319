// Package apperr classifies failures crossing the service boundary so that
// handlers can map them onto HTTP responses without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindInternal covers storage-layer inconsistencies and everything
	// not otherwise classified.
	KindInternal Kind = iota
	// KindNotFound covers unknown and not-owned resources alike, so
	// ownership is never leaked.
	KindNotFound
	// KindInvalidInput covers unprocessable source bytes.
	KindInvalidInput
	// KindConflict covers operations invalid for the current state.
	KindConflict
	// KindResourceExhausted covers separator resource-limit failures.
	KindResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindConflict:
		return "conflict"
	case KindResourceExhausted:
		return "resource exhausted"
	default:
		return "internal"
	}
}

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err; unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
