package apperrors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyPaid       = errors.New("contribution already paid")
	ErrAlreadyCompleted  = errors.New("loan already completed")
	ErrUTRMismatch       = errors.New("utr number mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("actor not authorized")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyPaid       = "ALREADY_PAID"
	ErrCodeAlreadyCompleted  = "ALREADY_COMPLETED"
	ErrCodeUTRMismatch       = "UTR_MISMATCH"
	ErrCodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeCacheError        = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(format string, args ...interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		fmt.Sprintf(format, args...),
		ErrValidation,
	)
}

func WrapNotFound(entity string, id interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s with ID %v not found", entity, id),
		ErrNotFound,
	)
}

func WrapAlreadyPaid(contributionID interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyPaid,
		fmt.Sprintf("Contribution %v has already been approved", contributionID),
		ErrAlreadyPaid,
	)
}

func WrapAlreadyCompleted(loanID interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyCompleted,
		fmt.Sprintf("Loan %v is already completed, no more payments are accepted", loanID),
		ErrAlreadyCompleted,
	)
}

func WrapUTRMismatch(contributionID interface{}) *BusinessError {
	return NewBusinessError(
		ErrCodeUTRMismatch,
		fmt.Sprintf("UTR number mismatch for contribution %v", contributionID),
		ErrUTRMismatch,
	)
}

func WrapInsufficientFunds(available, required string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientFunds,
		fmt.Sprintf("Insufficient bank balance (available: %s, required: %s)", available, required),
		ErrInsufficientFunds,
	)
}

func WrapInsufficientClosingAmount(offered, required string) *BusinessError {
	return NewBusinessError(
		ErrCodeInsufficientFunds,
		fmt.Sprintf("Closing amount %s is less than the outstanding amount %s", offered, required),
		ErrInsufficientFunds,
	)
}

func WrapUnauthorized(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeUnauthorized,
		message,
		ErrUnauthorized,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
