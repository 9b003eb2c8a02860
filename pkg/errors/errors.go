package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their template.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Timetable addressing.
	ErrOutOfRange   = New("OUT_OF_RANGE", http.StatusBadRequest, "day or period out of range")
	ErrSlotNotFound = New("SLOT_NOT_FOUND", http.StatusNotFound, "timetable slot not found")

	// Next-day reporting policy.
	ErrOutsideReportingWindow = New("OUTSIDE_REPORTING_WINDOW", http.StatusUnprocessableEntity, "absence reporting for tomorrow is closed")
	ErrWeekendNotReportable   = New("WEEKEND_NOT_REPORTABLE", http.StatusUnprocessableEntity, "cannot report absence for a weekend")
	ErrNoClassesScheduled     = New("NO_CLASSES_SCHEDULED", http.StatusUnprocessableEntity, "no classes scheduled")

	// Substitute resolution.
	ErrNoCandidates        = New("NO_CANDIDATES", http.StatusConflict, "no teachers are available for substitution at this time")
	ErrInvalidSelection    = New("INVALID_SELECTION", http.StatusBadGateway, "suggested substitute is not an available teacher")
	ErrSelectorUnavailable = New("SELECTOR_UNAVAILABLE", http.StatusServiceUnavailable, "substitute suggestion service unavailable")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
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

// CodeOf returns the code of a typed error or the internal code otherwise.
func CodeOf(err error) string {
	if appErr := FromError(err); appErr != nil {
		return appErr.Code
	}
	return ""
}
