package apperr

import (
	"errors"
	"fmt"
)

// Error kinds shared by every component. Match them with errors.Is.
var (
	ErrSchema            = errors.New("schema error")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage error")
)

// Error carries one of the kinds above plus a message for the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

func Schema(format string, args ...any) error {
	return &Error{Kind: ErrSchema, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...)}
}

func InvalidTransition(from, to string) error {
	return &Error{Kind: ErrInvalidTransition, Msg: fmt.Sprintf("invalid transition: %s -> %s", from, to)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps an asset upload failure, keeping the cause in the message.
func Storage(cause error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if cause != nil {
		msg = msg + ": " + cause.Error()
	}
	return &Error{Kind: ErrStorage, Msg: msg}
}

// KindOf returns the kind of err, or nil when err is not one of ours.
func KindOf(err error) error {
	for _, kind := range []error{ErrSchema, ErrConflict, ErrInvalidTransition, ErrNotFound, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
