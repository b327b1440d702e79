// Package errors defines the typed error that every handler renders.
// Services return these instead of raw errors so the HTTP status and
// machine-readable code travel with the failure instead of being
// re-derived at the edge.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries a stable code for clients, a human message and the HTTP
// status it renders with. Err keeps the underlying cause for logs; it is
// never serialized.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a sentinel. Call sites derive request-specific errors from
// sentinels with Clone, Clonef or WrapAs rather than calling New inline.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches a cause to a fresh code, status and message.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs attaches a cause under an existing sentinel's code and status.
func WrapAs(err error, base *Error, message string) *Error {
	return Wrap(err, base.Code, base.Status, message)
}

// Clone copies a sentinel, overriding its message when one is given.
// Sentinels are shared package state, so they are never mutated in place.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Clonef is Clone with a formatted message.
func Clonef(err *Error, format string, args ...interface{}) *Error {
	return Clone(err, fmt.Sprintf(format, args...))
}

// FromError normalises any error into an *Error. Unknown errors become
// internal ones so nothing leaks an unclassified message to clients.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapAs(err, ErrInternal, ErrInternal.Message)
}

var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
)

// Scheduling and export failures with meaning to API clients.
var (
	ErrInvalidCreditUnits = New("INVALID_CREDIT_UNITS", http.StatusUnprocessableEntity, "invalid credit units")
	ErrScheduleIncomplete = New("SCHEDULE_INCOMPLETE", http.StatusUnprocessableEntity, "too many classes could not be placed")
	ErrSchedulePublished  = New("SCHEDULE_PUBLISHED", http.StatusConflict, "published schedules are read-only")
	ErrSessionNotFound    = New("SESSION_NOT_FOUND", http.StatusNotFound, "session not found on the timetable")
	ErrStaleSession       = New("STALE_SESSION", http.StatusConflict, "session is no longer at the expected slot")
	ErrRosterParse        = New("ROSTER_PARSE_ERROR", http.StatusBadRequest, "class list could not be parsed")
	ErrUnsupportedFormat  = New("UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported export format")
	ErrDownloadForbidden  = New("DOWNLOAD_FORBIDDEN", http.StatusForbidden, "download link is invalid or has expired")
)

// ErrCacheMiss signals an empty cache lookup. Internal, never rendered
// to clients.
var ErrCacheMiss = errors.New("cache miss")
