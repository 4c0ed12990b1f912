package api

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// Machine-readable error codes. Clients branch on these, never on messages.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeTokenMissing        = "TOKEN_MISSING"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicateEntry      = "DUPLICATE_ENTRY"
	CodeRelationNotFound    = "RELATION_NOT_FOUND"
	CodeDeleteConflict      = "DELETE_CONFLICT"
	CodeDBError             = "DB_ERROR"
	CodeGoogleAPIError      = "GOOGLE_API_ERROR"
	CodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	CodeRouteNotFound       = "ROUTE_NOT_FOUND"
	CodeUnexpected          = "UNEXPECTED_ERROR"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// Detail describes a single violated field rule.
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the structured error every failure path is normalized into.
//
// Operational errors are anticipated conditions (bad input, missing
// credentials, conflicts). Non-operational errors are unanticipated failures
// whose diagnostic trace is withheld from clients in hardened mode.
type APIError struct {
	Status      int
	Message     string
	Code        string
	Operational bool

	// Details is either []Detail (validation) or a diagnostic trace.
	Details any

	cause error
	stack string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status, defaulting to 500.
func (e *APIError) StatusCode() int {
	if e.Status < 400 || e.Status > 599 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Stack returns the stack captured when a non-operational error was created.
func (e *APIError) Stack() string { return e.stack }

// WithCause attaches an underlying error and returns e.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// WithStack attaches a captured stack trace and returns e.
func (e *APIError) WithStack(stack string) *APIError {
	e.stack = stack
	return e
}

// New creates an operational APIError.
func New(status int, message, code string) *APIError {
	return &APIError{
		Status:      status,
		Message:     message,
		Code:        code,
		Operational: true,
	}
}

// NewInternal creates a non-operational APIError and records the caller's stack.
func NewInternal(status int, message, code string, cause error) *APIError {
	return &APIError{
		Status:  status,
		Message: message,
		Code:    code,
		cause:   cause,
		stack:   string(debug.Stack()),
	}
}

// NewValidationError creates the 400 error carrying per-field details.
func NewValidationError(details []Detail) *APIError {
	e := New(http.StatusBadRequest, "Input validation failed", CodeValidation)
	e.Details = details
	return e
}

// NewUnauthorizedError creates a 401 error with the given code.
func NewUnauthorizedError(message, code string) *APIError {
	return New(http.StatusUnauthorized, message, code)
}

// NewForbiddenError creates a 403 error.
func NewForbiddenError(message string) *APIError {
	return New(http.StatusForbidden, message, CodeForbidden)
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *APIError {
	return New(http.StatusNotFound, message, CodeNotFound)
}

// NewConflictError creates a 409 error with the given code.
func NewConflictError(message, code string) *APIError {
	return New(http.StatusConflict, message, code)
}
