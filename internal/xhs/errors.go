package xhs

import (
	"errors"
	"fmt"
)

// Kind categorizes run failures for logging and HTTP status mapping.
type Kind string

// Failure kinds surfaced by the orchestration pipeline.
const (
	KindValidation Kind = "validation"
	KindNetwork    Kind = "network"
	KindTimeout    Kind = "timeout"
	KindNotFound   Kind = "not_found"
	KindBackend    Kind = "backend"
)

// Error is the typed failure propagated through the crawl pipeline. Message
// holds the most specific text available; for backend failures that is the
// server-supplied detail rather than the generic transport message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validationf builds a validation failure. Raised before any remote call.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found failure (no artifacts, records, or match).
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Timeoutf builds a timeout failure (poller budget exhausted).
func Timeoutf(format string, args ...any) *Error {
	return &Error{Kind: KindTimeout, Message: fmt.Sprintf(format, args...)}
}

// Network wraps a transport-level failure.
func Network(message string, cause error) *Error {
	return &Error{Kind: KindNetwork, Message: message, Err: cause}
}

// Backend wraps a non-2xx response, carrying the server detail message.
func Backend(message string, cause error) *Error {
	return &Error{Kind: KindBackend, Message: message, Err: cause}
}

// KindOf classifies err, returning the empty Kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage extracts the most specific user-facing text from err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
