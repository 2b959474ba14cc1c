package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport is returned when the backend is unreachable, misconfigured or answers garbage.
	ErrTransport = errors.New("backend unavailable")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when the backend rejects a payload.
	ErrValidation = errors.New("rejected by backend")

	// ErrUnauthenticated is returned when a call needs an identity and none is attached.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error describes a failed RPC. Kind is one of the sentinel errors above.
type Error struct {
	Op      string
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("backend: %s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func kindFor(code string, status int) error {
	switch code {
	case CodeNotFound:
		return ErrNotFound
	case CodeInvalidArgument:
		return ErrValidation
	case CodeUnauthenticated:
		return ErrUnauthenticated
	}
	switch status {
	case 404:
		return ErrNotFound
	case 400, 422:
		return ErrValidation
	case 401, 403:
		return ErrUnauthenticated
	}
	return ErrTransport
}

// outcomeLabel maps an RPC error onto a low-cardinality metric label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "transport"
	}
}
