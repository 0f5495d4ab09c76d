package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
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
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrGone               = New("GONE", http.StatusGone, "resource gone")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrPayloadTooLarge    = New("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, "payload too large")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrStalePageToken rejects a page token replayed against a query it was
	// not issued for, or one whose cache row no longer exists.
	ErrStalePageToken = New("STALE_PAGE_TOKEN", http.StatusBadRequest, "stale or mismatched page token")

	// ErrCalendarNotAdded covers lookups against a calendar missing from the
	// user's list.
	ErrCalendarNotAdded = New("CALENDAR_NOT_ADDED", http.StatusNotFound, "calendar not in user's list")

	// Fold-targets for upstream status codes outside the mapped set.
	ErrUpstreamClient = New("UPSTREAM_CLIENT_ERROR", http.StatusBadRequest, "upstream rejected the request")
	ErrUpstreamServer = New("UPSTREAM_ERROR", http.StatusBadGateway, "upstream calendar service error")
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

// statusMap carries the upstream status codes mirrored 1:1 locally.
var statusMap = map[int]*Error{
	http.StatusBadRequest:            ErrValidation,
	http.StatusUnauthorized:          ErrUnauthorized,
	http.StatusForbidden:             ErrForbidden,
	http.StatusNotFound:              ErrNotFound,
	http.StatusConflict:              ErrConflict,
	http.StatusGone:                  ErrGone,
	http.StatusPreconditionFailed:    ErrPreconditionFailed,
	http.StatusRequestEntityTooLarge: ErrPayloadTooLarge,
	http.StatusInternalServerError:   ErrInternal,
}

// FromGoogleAPI maps a Calendar API failure onto the local taxonomy. Mapped
// status codes translate 1:1; anything else folds to a class-level error.
func FromGoogleAPI(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return Wrap(err, ErrUpstreamServer.Code, ErrUpstreamServer.Status, message)
	}
	if mapped, ok := statusMap[gerr.Code]; ok {
		return Wrap(err, mapped.Code, mapped.Status, message)
	}
	if gerr.Code >= 400 && gerr.Code < 500 {
		return Wrap(err, ErrUpstreamClient.Code, ErrUpstreamClient.Status, message)
	}
	return Wrap(err, ErrUpstreamServer.Code, ErrUpstreamServer.Status, message)
}
