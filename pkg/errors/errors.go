package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeIncompatible indicates a donor/recipient blood type mismatch
	ErrorTypeIncompatible ErrorType = "INCOMPATIBLE"

	// ErrorTypeInvalidTransition indicates a forbidden referral status change
	ErrorTypeInvalidTransition ErrorType = "INVALID_TRANSITION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeDuplicateProfile indicates a user already owns a profile of that kind
	ErrorTypeDuplicateProfile ErrorType = "DUPLICATE_PROFILE"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// Is matches another AppError of the same type with an empty message, so
// errors.Is(err, ErrNotFound) works across wrapping
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Message == "" && t.Err == nil && t.Type == e.Type
}

// Sentinels for errors.Is
var (
	ErrNotFound          = &AppError{Type: ErrorTypeNotFound}
	ErrConflict          = &AppError{Type: ErrorTypeConflict}
	ErrInvalidTransition = &AppError{Type: ErrorTypeInvalidTransition}
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, message, nil)
}

// NotFoundf creates a not found error naming the missing entity
func NotFoundf(entity, id string) *AppError {
	return NewNotFoundError(fmt.Sprintf("%s with id %s not found", entity, id))
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

// NewIncompatibilityError reports a donor blood type that cannot supply the recipient
func NewIncompatibilityError(message string) *AppError {
	return newError(ErrorTypeIncompatible, message, nil)
}

// NewInvalidTransitionError reports a referral status change the lifecycle forbids
func NewInvalidTransitionError(message string) *AppError {
	return newError(ErrorTypeInvalidTransition, message, nil)
}

// NewConflictError reports a uniqueness clash or a stale version
func NewConflictError(message string) *AppError {
	return newError(ErrorTypeConflict, message, nil)
}

// NewDuplicateProfileError reports a second profile of one kind on the same account
func NewDuplicateProfileError(message string) *AppError {
	return newError(ErrorTypeDuplicateProfile, message, nil)
}

// NewInternalError wraps an unexpected failure; its message is not shown to clients
func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

// TypeOf returns the ErrorType carried anywhere in err's chain, or "" if none
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}
