package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

// ErrorCode is the stable numeric code carried in every error response body.
type ErrorCode int

const (
	CodeValidationFailed ErrorCode = 1000

	CodeInvalidCredentials ErrorCode = 1101
	CodeMissingToken       ErrorCode = 1102
	CodeInvalidToken       ErrorCode = 1103
	CodeTokenExpired       ErrorCode = 1104
	CodeSessionRevoked     ErrorCode = 1105

	CodeInsufficientPermissions ErrorCode = 1201

	CodeUserNotFound    ErrorCode = 1301
	CodeRoleNotFound    ErrorCode = 1302
	CodeSessionNotFound ErrorCode = 1303

	CodeDuplicateEmail    ErrorCode = 1401
	CodeDuplicateUsername ErrorCode = 1402
	CodeDuplicateRoleName ErrorCode = 1403
	CodeSelfDemotion      ErrorCode = 1404
	CodeSelfDeletion      ErrorCode = 1405
	CodeRoleInUse         ErrorCode = 1406

	CodeInternal ErrorCode = 1500
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"errorCode"`
	Message    string      `json:"message"`
	Details    interface{} `json:"errors,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       CodeValidationFailed,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldErrors(errs []ValidationError) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       CodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    ValidationErrors{Errors: errs},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// Shared sentinel errors. The login failures deliberately share one message
// so the response for "unknown email" and "wrong password" is
// indistinguishable.
var (
	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", CodeInvalidCredentials)
	ErrMissingToken       = NewUnauthorizedError("Missing authentication token", CodeMissingToken)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", CodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", CodeTokenExpired)
	ErrSessionRevoked     = NewUnauthorizedError("Session is no longer active", CodeSessionRevoked)

	ErrForbidden = NewForbiddenError("Insufficient permissions", CodeInsufficientPermissions)

	ErrUserNotFound = NewNotFoundError("User not found", CodeUserNotFound)
	ErrRoleNotFound = NewNotFoundError("Role not found", CodeRoleNotFound)

	ErrDuplicateEmail    = NewConflictError("Email is already taken", CodeDuplicateEmail)
	ErrDuplicateUsername = NewConflictError("Username is already taken", CodeDuplicateUsername)
	ErrDuplicateRoleName = NewConflictError("Role name is already taken", CodeDuplicateRoleName)
	ErrSelfDemotion      = NewConflictError("Cannot change your own roles", CodeSelfDemotion)
	ErrSelfDeletion      = NewConflictError("Cannot delete your own account", CodeSelfDeletion)
	ErrRoleInUse         = NewConflictError("Role is still assigned to users", CodeRoleInUse)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

// MarshalJSON keeps Cause and StatusCode out of the response body; internal
// detail is only ever logged server-side.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"errorCode"`
		Message string      `json:"message"`
		Details interface{} `json:"errors,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
