package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrPickAborted indicates an add-items operation was started without any root
	ErrPickAborted = errors.New("Pick aborted")

	// ErrNotFound indicates the requested project is not part of the collection
	ErrNotFound = errors.New("project not found")

	// ErrEngineStopped indicates the reconciliation engine is no longer running
	ErrEngineStopped = errors.New("engine stopped")
)

// ErrorCode classifies failures surfaced by the services.
type ErrorCode string

const (
	ErrCodeFetchFailed    ErrorCode = "FETCH_FAILED"
	ErrCodeIdentityFailed ErrorCode = "IDENTITY_COMPUTATION_FAILED"
	ErrCodeCleanFailed    ErrorCode = "CLEAN_FAILED"
	ErrCodeConfigIOFailed ErrorCode = "CONFIG_IO_FAILED"
	ErrCodeAddItemsFailed ErrorCode = "ADD_ITEMS_FAILED"
	ErrCodeInvalidPayload ErrorCode = "INVALID_PAYLOAD"
)

// Error is a classified failure carried in Rejected loading values.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Cause == nil
}

// NewError creates a classified error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the error code from an error chain.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// FetchFailed wraps a failed discovery call.
func FetchFailed(err error) *Error {
	return NewError(ErrCodeFetchFailed, "discovery failed", err)
}

// IdentityFailed wraps a failed digest computation for path.
func IdentityFailed(path string, err error) *Error {
	return NewError(ErrCodeIdentityFailed, fmt.Sprintf("computing identity of %s", path), err)
}

// CleanFailed wraps a failed clean attempt for path.
func CleanFailed(path string, err error) *Error {
	return NewError(ErrCodeCleanFailed, fmt.Sprintf("cleaning %s", path), err)
}

// ConfigIOFailed wraps a failed configuration read or write.
func ConfigIOFailed(op string, err error) *Error {
	return NewError(ErrCodeConfigIOFailed, op+" configuration", err)
}

// AddItemsFailed carries the message delivered by an add_items/rejected notification.
func AddItemsFailed(message string) *Error {
	return NewError(ErrCodeAddItemsFailed, message, nil)
}

// InvalidPayload wraps a notification payload that could not be decoded.
func InvalidPayload(topic string, err error) *Error {
	return NewError(ErrCodeInvalidPayload, "decoding "+topic+" payload", err)
}
