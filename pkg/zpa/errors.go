package zpa

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an engine error for the invoker's result sink.
type ErrorKind string

const (
	// ErrorKindValidation indicates a malformed desired record or request.
	// Raised before any network call is made.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindNotFound indicates a lookup-by-id that returned 404.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindConflict indicates a 409 on create or update.
	// Recoverable hint for the caller.
	ErrorKindConflict ErrorKind = "conflict"

	// ErrorKindTransport indicates a connection failure, timeout, or 5xx.
	// The engine does not auto-retry.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindAuth indicates missing credentials or a failed token grant,
	// including a 401 that persists after one refresh.
	ErrorKindAuth ErrorKind = "auth"

	// ErrorKindAPI indicates a 4xx (other than 401/404) or a server-reported
	// field error. The server message is surfaced verbatim.
	ErrorKindAPI ErrorKind = "api"

	// ErrorKindPrecondition indicates an operation the resource kind does not
	// support, or a bulk request that failed local validation.
	ErrorKindPrecondition ErrorKind = "precondition"
)

// Error is the single classified error type crossing every engine boundary.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Kind-of-resource and lookup key give the invoker enough context to
	// render the failure without post-processing.
	ResourceKind string `json:"resource_kind,omitempty"`
	LookupKey    string `json:"lookup_key,omitempty"`

	// StatusCode is the HTTP status that produced the error, when one did.
	StatusCode int `json:"status_code,omitempty"`

	// Fields names the desired-record fields involved, for validation errors.
	Fields []string `json:"fields,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.ResourceKind != "" {
		msg += fmt.Sprintf(" (kind=%s", e.ResourceKind)
		if e.LookupKey != "" {
			msg += fmt.Sprintf(", key=%s", e.LookupKey)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewValidationError creates a validation error naming the offending fields.
func NewValidationError(message string, fields ...string) *Error {
	return &Error{Kind: ErrorKindValidation, Message: message, Fields: fields}
}

// NewNotFoundError creates a not_found error.
func NewNotFoundError(message string) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: message, StatusCode: 404}
}

// NewConflictError creates a conflict error.
func NewConflictError(message string, err error) *Error {
	return &Error{Kind: ErrorKindConflict, Message: message, StatusCode: 409, Err: err}
}

// NewTransportError creates a transport error.
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: ErrorKindTransport, Message: message, Err: err}
}

// NewAuthError creates an auth error.
func NewAuthError(message string, err error) *Error {
	return &Error{Kind: ErrorKindAuth, Message: message, Err: err}
}

// NewAPIError creates an api error carrying the server's verbatim message.
func NewAPIError(message string, status int) *Error {
	return &Error{Kind: ErrorKindAPI, Message: message, StatusCode: status}
}

// NewPreconditionError creates a precondition error.
func NewPreconditionError(message string) *Error {
	return &Error{Kind: ErrorKindPrecondition, Message: message}
}

// WithResource adds resource-kind and lookup-key context to an error.
func (e *Error) WithResource(kind, key string) *Error {
	e.ResourceKind = kind
	e.LookupKey = key
	return e
}

// WithStatus records the HTTP status that produced the error.
func (e *Error) WithStatus(status int) *Error {
	e.StatusCode = status
	return e
}

// KindOf returns the classification of err, or "" when err is not an engine
// error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound returns true if the error is classified as not_found.
func IsNotFound(err error) bool {
	return KindOf(err) == ErrorKindNotFound
}

// IsValidation returns true if the error is classified as validation.
func IsValidation(err error) bool {
	return KindOf(err) == ErrorKindValidation
}

// IsAuth returns true if the error is classified as auth.
func IsAuth(err error) bool {
	return KindOf(err) == ErrorKindAuth
}

// IsTransport returns true if the error is classified as transport.
func IsTransport(err error) bool {
	return KindOf(err) == ErrorKindTransport
}

// IsConflict returns true if the error is classified as conflict.
func IsConflict(err error) bool {
	return KindOf(err) == ErrorKindConflict
}

// IsPrecondition returns true if the error is classified as precondition.
func IsPrecondition(err error) bool {
	return KindOf(err) == ErrorKindPrecondition
}
