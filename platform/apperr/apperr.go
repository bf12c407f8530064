// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates invalid input data or a rejected state transition.
	KindValidation
	// KindConflict indicates a conflict with existing state (e.g., double close).
	KindConflict
	// KindForbidden indicates the action is not allowed for the user.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindBadRequest indicates a malformed or invalid request.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindGone indicates a resource that existed but is no longer available.
	KindGone
	// KindUnavailable indicates an external collaborator could not be reached.
	KindUnavailable
)

// Code is a stable machine-readable identifier for a domain failure.
// Clients branch on codes; messages are for humans and may change.
type Code string

const (
	// CodeMissingCloser rejects a move into a close/deposit stage without a closer.
	CodeMissingCloser Code = "missing_closer"
	// CodeLegacyImport rejects a reschedule for an appointment imported without
	// an external invitee reference.
	CodeLegacyImport Code = "legacy_import"
	// CodeAlreadyClosed rejects a second close transaction for an appointment.
	CodeAlreadyClosed Code = "already_closed"
	// CodeAlreadyClaimed rejects claiming a task held by another user.
	CodeAlreadyClaimed Code = "already_claimed"
	// CodeNoActiveTask rejects a payment confirmation with no due task.
	CodeNoActiveTask Code = "no_active_task"

	// CodeCalendarUnauthenticated signals rejected calendar credentials.
	CodeCalendarUnauthenticated Code = "calendar_unauthenticated"
	// CodeCalendarNotFound signals an unknown invitee reference upstream.
	CodeCalendarNotFound Code = "calendar_not_found"
	// CodeCalendarTimeout signals the calendar provider did not answer in time.
	CodeCalendarTimeout Code = "calendar_timeout"

	// CodeUndoExpired signals the undo grace window has passed.
	CodeUndoExpired Code = "undo_expired"
	// CodeUndoConflict signals the record changed since the action was tracked.
	CodeUndoConflict Code = "undo_conflict"

	// CodeConsistencyViolation signals a defensive invariant check fired.
	// This indicates a race or a sequencing bug, never normal operation.
	CodeConsistencyViolation Code = "consistency_violation"
)

// Error is a domain error with a typed Kind for HTTP mapping and an optional
// stable Code for client branching.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	case KindGone:
		return http.StatusGone
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewCoded creates a new domain error carrying a stable code.
func NewCoded(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error with a stable code.
func Validation(code Code, message string) *Error {
	return NewCoded(KindValidation, code, message)
}

// Conflict creates a conflict error with a stable code.
func Conflict(code Code, message string) *Error {
	return NewCoded(KindConflict, code, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// Gone creates a gone error with a stable code (expired undo slot).
func Gone(code Code, message string) *Error {
	return NewCoded(KindGone, code, message)
}

// Unavailable creates an external-collaborator error with a stable code.
func Unavailable(code Code, message string) *Error {
	return NewCoded(KindUnavailable, code, message)
}

// Consistency creates a consistency-violation error. Callers are expected to
// log these loudly: they indicate a race, not a user mistake.
func Consistency(message string) *Error {
	return NewCoded(KindInternal, CodeConsistencyViolation, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// GetCode extracts the stable code from an error, or "" when untyped.
func GetCode(err error) Code {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// IsCode checks if err is an *Error carrying the given code.
func IsCode(err error, code Code) bool {
	return GetCode(err) == code
}
