// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures so the API layer can map them to status codes.
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation_error"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeError           ErrorType = "processing_error"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypePayloadTooLarge ErrorType = "payload_too_large"
	ErrorTypeUpstream        ErrorType = "upstream_error"
	ErrorTypeFeatureDisabled ErrorType = "feature_disabled"
)

// AppError is the error type returned across package boundaries.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
	// Status is the upstream HTTP status for ErrorTypeUpstream, zero otherwise.
	Status int
}

// Error implements error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error chaining
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError of the given type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

func NewTimeoutError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeTimeout, message, originalError)
}

func NewPayloadTooLargeError(message string) *AppError {
	return NewAppError(ErrorTypePayloadTooLarge, message, nil)
}

// NewUpstreamError reports a non-success answer from the generation backend.
func NewUpstreamError(status int, message string) *AppError {
	e := NewAppError(ErrorTypeUpstream, message, nil)
	e.Status = status
	return e
}

func NewFeatureDisabledError(feature string) *AppError {
	return NewAppError(ErrorTypeFeatureDisabled, fmt.Sprintf("feature %q is disabled", feature), nil)
}

// TypeOf returns the type of the first AppError in the chain.
func TypeOf(err error) (ErrorType, bool) {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type, true
	}
	return "", false
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

func IsValidationError(err error) bool      { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool        { return isType(err, ErrorTypeNotFound) }
func IsConflictError(err error) bool        { return isType(err, ErrorTypeConflict) }
func IsPayloadTooLargeError(err error) bool { return isType(err, ErrorTypePayloadTooLarge) }
func IsUpstreamError(err error) bool        { return isType(err, ErrorTypeUpstream) }
func IsFeatureDisabledError(err error) bool { return isType(err, ErrorTypeFeatureDisabled) }

// HTTPStatus maps an error onto the status code the API should answer with.
func HTTPStatus(err error) int {
	t, ok := TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound, ErrorTypeFeatureDisabled:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message of an AppError, or err.Error() otherwise.
func Message(err error) string {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Message
	}
	return err.Error()
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypePayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case ErrorTypeUpstream:
		return "UPSTREAM_ERROR"
	case ErrorTypeFeatureDisabled:
		return "FEATURE_DISABLED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError adds context to err while keeping its type.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
			Status:  appError.Status,
		}
	}

	return NewAppError(errType, message, err)
}
