package common

import "errors"

// Error codes used across the playground API. Gateway and transport failures
// are folded into the session error field and never escape the action
// boundary; the remaining codes map to HTTP statuses at the handler edge.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnresolvedCreds  = "UNRESOLVED_CREDENTIALS"
	CodeEnvMisconfigured = "ENVIRONMENT_MISCONFIGURED"
	CodeGateway          = "GATEWAY_ERROR"
	CodeTransport        = "TRANSPORT_ERROR"
	CodePersistence      = "PERSISTENCE_ERROR"
)

// AppError carries an error code and HTTP status alongside the cause.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Validation builds a fail-fast boundary validation error.
func Validation(message string, details any) *AppError {
	return &AppError{Code: CodeValidation, Message: message, HTTPStatus: 400, Details: details}
}

// CodeOf returns the error code when err is an AppError, or an empty string.
func CodeOf(err error) string {
	var target *AppError
	if errors.As(err, &target) {
		return target.Code
	}
	return ""
}
