package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a bot error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrForbidden      ErrorCode = "FORBIDDEN"       // 403
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrUnavailable    ErrorCode = "UNAVAILABLE"     // 503
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// BotError represents a structured error with code, status, and details.
type BotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *BotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *BotError {
	return &BotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error for missing or expired credentials.
func NewUnauthorized(msg string) *BotError {
	return &BotError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewForbidden creates a 403 error, used when the bot lacks permission in a channel.
func NewForbidden(msg string) *BotError {
	return &BotError{
		Code:    ErrForbidden,
		Status:  403,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for an unknown tracked message.
func NewNotFound(what, identifier string) *BotError {
	return &BotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", what, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUnavailable creates a 503 error for a collaborator that cannot be reached.
func NewUnavailable(msg string) *BotError {
	return &BotError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *BotError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &BotError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// New builds a BotError from a wire code, falling back to INTERNAL for codes
// this build does not know.
func New(code ErrorCode, msg string) *BotError {
	switch code {
	case ErrInvalidRequest:
		return NewInvalidRequest(msg)
	case ErrUnauthorized:
		return NewUnauthorized(msg)
	case ErrForbidden:
		return NewForbidden(msg)
	case ErrNotFound:
		return &BotError{Code: ErrNotFound, Status: 404, Message: msg}
	case ErrUnavailable:
		return NewUnavailable(msg)
	default:
		return &BotError{Code: ErrInternal, Status: 500, Message: msg}
	}
}

// From returns err as a BotError, wrapping anything unstructured as INTERNAL.
func From(err error) *BotError {
	if err == nil {
		return nil
	}
	var bErr *BotError
	if stderrors.As(err, &bErr) {
		return bErr
	}
	return NewInternal(err)
}

// Is checks if an error is a BotError with the given code.
func Is(err error, code ErrorCode) bool {
	var bErr *BotError
	if stderrors.As(err, &bErr) {
		return bErr.Code == code
	}
	return false
}
