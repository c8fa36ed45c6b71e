// Package xerr defines the flat error taxonomy shared by every component of
// the connectivity core. Kinds are independent of any particular venue's
// exception hierarchy — the gateway maps raw venue errors onto them, and
// callers branch on Kind rather than on concrete error types.
package xerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	// Transient is a venue-side temporary fault; retryable.
	Transient Kind = "TRANSIENT"
	// Permanent is a venue-rejected invariant violation; not retryable.
	Permanent Kind = "PERMANENT"
	// RateLimit means the venue's rate ceiling was hit; the caller must
	// back off beyond the token bucket's own shaping.
	RateLimit Kind = "RATE_LIMIT"
	// InvalidOrder is a validation failure, ours or the venue's.
	InvalidOrder Kind = "INVALID_ORDER"
	// InsufficientBalance means the account cannot fund the order.
	InsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	// Connection means the transport failed to establish or dropped.
	Connection Kind = "CONNECTION"
	// WebSocket is a protocol or frame-level WebSocket error.
	WebSocket Kind = "WEBSOCKET"
	// InvalidTransition is an OMS state-machine rejection.
	InvalidTransition Kind = "INVALID_TRANSITION"
	// AlreadyExists is raised by the OMS registry's add operation.
	AlreadyExists Kind = "ALREADY_EXISTS"
)

// Retryable reports whether the retry policy (C4) should retry an error of
// this kind. Only Transient is retried at the REST-call boundary; RateLimit
// is returned to the caller to back off, and Connection/WebSocket are
// handled by the WebSocket reconnect loop, not by C4's retry.
func (k Kind) Retryable() bool {
	return k == Transient
}

// Error is the concrete error type returned across the connectivity core.
type Error struct {
	Kind    Kind
	Message string
	Code    int // venue-specific error code, 0 if not applicable
	Cause   error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code: %d)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets callers write errors.Is(err, xerr.New(xerr.Transient, "")) etc.
// by comparing Kind against a sentinel constructed with New(kind, "").
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind that chains cause via Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithCode attaches a venue-specific error code to e and returns e.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) an *Error of the given kind. This is
// the primary way callers should branch: xerr.Is(err, xerr.Transient).
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
