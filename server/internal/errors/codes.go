package errors

import (
	"fmt"
)

// ErrorCode represents a specific error type for engine operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a malformed rule or request
	// parameter, rejected before any expansion or write.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeSeriesNotFound indicates the referenced series does not exist.
	ErrCodeSeriesNotFound ErrorCode = "SERIES_NOT_FOUND"
	// ErrCodeInstanceNotFound indicates the referenced instance does not exist.
	ErrCodeInstanceNotFound ErrorCode = "INSTANCE_NOT_FOUND"
	// ErrCodeNotForever indicates a reassign attempt on a series whose rule
	// has a fixed end date.
	ErrCodeNotForever ErrorCode = "NOT_FOREVER"
	// ErrCodeFailedPrecondition indicates the operation's precondition does
	// not hold; no state was changed.
	ErrCodeFailedPrecondition ErrorCode = "FAILED_PRECONDITION"
	// ErrCodePartialPersistence indicates a bulk write succeeded for some
	// items and failed for others; written items are not rolled back.
	ErrCodePartialPersistence ErrorCode = "PARTIAL_PERSISTENCE"
)

// EngineError represents a structured error for engine operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *EngineError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(format string, args ...any) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// SeriesNotFound creates a series not found error.
func SeriesNotFound(seriesUID string) *EngineError {
	return &EngineError{
		Code:    ErrCodeSeriesNotFound,
		Message: fmt.Sprintf("series not found: %s", seriesUID),
	}
}

// InstanceNotFound creates an instance not found error.
func InstanceNotFound(instanceUID string) *EngineError {
	return &EngineError{
		Code:    ErrCodeInstanceNotFound,
		Message: fmt.Sprintf("instance not found: %s", instanceUID),
	}
}

// NotForever creates an error for reassigning a bounded series.
func NotForever(seriesUID string) *EngineError {
	return &EngineError{
		Code:    ErrCodeNotForever,
		Message: fmt.Sprintf("series %s is not a forever series", seriesUID),
	}
}

// FailedPrecondition creates a failed precondition error.
func FailedPrecondition(format string, args ...any) *EngineError {
	return &EngineError{Code: ErrCodeFailedPrecondition, Message: fmt.Sprintf(format, args...)}
}

// PartialPersistence creates a partial persistence error reporting how many
// items of a bulk write succeeded and failed.
func PartialPersistence(succeeded, failed int) *EngineError {
	return &EngineError{
		Code:    ErrCodePartialPersistence,
		Message: fmt.Sprintf("bulk write partially failed: %d succeeded, %d failed", succeeded, failed),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if engErr, ok := err.(*EngineError); ok {
		return engErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an EngineError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if engErr, ok := err.(*EngineError); ok {
		return engErr.Code
	}
	return defaultCode
}
