package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotAuthenticated Kind = "not_authenticated"
	KindAccessDenied     Kind = "access_denied"
	KindNotFound         Kind = "not_found"
	KindValidation       Kind = "validation"
	KindBackend          Kind = "backend"
)

// Error is the failure every action returns. Message is safe to show to the
// caller; Cause is for logs only.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	ErrAccessDenied     = &Error{Kind: KindAccessDenied}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrBackend          = &Error{Kind: KindBackend}
)

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotAuthenticated() error {
	return New(KindNotAuthenticated, "Not authenticated")
}

func AccessDenied(msg string) error {
	return New(KindAccessDenied, msg)
}

func NotFound(msg string) error {
	return New(KindNotFound, msg)
}

func Validation(msg string) error {
	return New(KindValidation, msg)
}

// Backend wraps an infrastructure failure. The caller sees msg, never the
// cause.
func Backend(msg string, cause error) error {
	return Wrap(KindBackend, msg, cause)
}

// KindOf reports the kind of err; unknown errors are backend errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

// MessageOf is the caller-facing text for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal error"
}
