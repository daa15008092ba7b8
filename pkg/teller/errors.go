package teller

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the teller core.
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountLocked          = errors.New("account locked")
	ErrInvalidPIN             = errors.New("invalid pin")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAccountID       = errors.New("invalid account id")
	ErrInvalidPINFormat       = errors.New("invalid pin format")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionKind = errors.New("invalid transaction kind")
	ErrInvalidCredentialHash  = errors.New("invalid credential hash")
	ErrCorruptStore           = errors.New("corrupt account store")
	ErrIDSpaceExhausted       = errors.New("account id space exhausted")
	ErrConcurrentModification = errors.New("concurrent store modification")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
)

// ErrAccountLockedNow marks the authentication failure that crossed the
// attempt limit. It unwraps to ErrInvalidPIN so callers checking only for a
// mismatch keep working.
var ErrAccountLockedNow = fmt.Errorf("%w: attempt limit reached", ErrInvalidPIN)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
