package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ScanFailed indicates a file could not be read or a glob could not be expanded
	ScanFailed ErrorCode = "SCAN_FAILED"
	// CacheCorrupted indicates a persisted record could not be parsed
	CacheCorrupted ErrorCode = "CACHE_CORRUPTED"
	// TranslatorTimeout indicates a translator call lost the race against its timeout
	TranslatorTimeout ErrorCode = "TRANSLATOR_TIMEOUT"
	// TranslatorFailed indicates the translator returned an error
	TranslatorFailed ErrorCode = "TRANSLATOR_ERROR"
	// UnexpectedException indicates the translator panicked or broke its contract
	UnexpectedException ErrorCode = "UNEXPECTED_EXCEPTION"
	// RunDeadlineExceeded indicates the whole-run deadline of an isolated run fired
	RunDeadlineExceeded ErrorCode = "RUN_DEADLINE_EXCEEDED"
	// ConfigurationInvalid indicates the pipeline cannot start
	ConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is a coded pipeline error.
type Error struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a coded error wrapping cause (which may be nil).
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Newf creates a coded error with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// CodeOf returns the code of the first coded error in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded.Code
	}
	return InternalError
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if c, ok := e.(*Error); ok && c.Code == code {
			return true
		}
	}
	return false
}

// IsConfiguration reports whether err is fatal to a whole invocation.
func IsConfiguration(err error) bool {
	return Is(err, ConfigurationInvalid)
}
