package worker

import (
	"fmt"
	"time"
)

// ErrorCode represents the type of worker error.
type ErrorCode string

const (
	// ErrCodeExecution indicates an execution error.
	ErrCodeExecution ErrorCode = "EXECUTION_ERROR"
	// ErrCodeTimeout indicates a timeout error.
	ErrCodeTimeout ErrorCode = "TIMEOUT_ERROR"
	// ErrCodeConfig indicates a registration/configuration error.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"
	// ErrCodeRateLimited indicates the shared dependency limiter refused.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Error represents an error during worker operations.
type Error struct {
	Code    ErrorCode
	Message string
	Worker  string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for execution failures.
func NewExecutionError(name, message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeExecution,
		Message: message,
		Worker:  name,
		Cause:   cause,
	}
}

// NewTimeoutError creates an error for a timed out invocation.
func NewTimeoutError(name string, timeout time.Duration) *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("worker execution timed out after %v", timeout),
		Worker:  name,
	}
}

// NewConfigError creates an error for registration issues.
func NewConfigError(message string, cause error) *Error {
	return &Error{
		Code:    ErrCodeConfig,
		Message: message,
		Cause:   cause,
	}
}

// NewRateLimitedError creates an error for a refused dependency call.
func NewRateLimitedError(name string, cause error) *Error {
	return &Error{
		Code:    ErrCodeRateLimited,
		Message: "rate limiter refused the call",
		Worker:  name,
		Cause:   cause,
	}
}

// IsTimeoutError checks if the error is a worker timeout.
func IsTimeoutError(err error) bool {
	if wErr, ok := err.(*Error); ok {
		return wErr.Code == ErrCodeTimeout
	}
	return false
}
