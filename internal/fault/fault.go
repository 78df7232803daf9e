// Package fault defines the closed set of error kinds the service surfaces to
// callers. Handlers map kinds to HTTP statuses in exactly one place; everything
// that is not one of these kinds is treated as internal.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Forbidden
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New creates a tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or Internal for untagged errors. It unwraps
// through wrapped chains so stores can annotate with fmt.Errorf("...: %w", err).
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Internal
}
