package engine

import (
	"errors"
	"fmt"
)

// Error is a recoverable failure reported by the engine.
//
// Nothing the engine reports is fatal to the host page: missing elements
// refuse registration, listener failures are isolated, and storage failures
// disable rate limiting for that attempt.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// PopupID identifies the affected popup, if any.
	PopupID string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeMissingElement indicates register was called without an element.
	ErrCodeMissingElement ErrorCode = "MISSING_ELEMENT"

	// ErrCodeListenerFailed indicates a show/hide handler returned an error or panicked.
	ErrCodeListenerFailed ErrorCode = "LISTENER_FAILED"

	// ErrCodeStorageUnavailable indicates a counter store could not be read or written.
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PopupID != "" {
		msg += fmt.Sprintf(" (popup=%s)", e.PopupID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsMissingElement returns true if err is a missing-element registration error.
// Uses errors.As to handle wrapped errors.
func IsMissingElement(err error) bool {
	return hasCode(err, ErrCodeMissingElement)
}

// IsListenerFailed returns true if err reports a failed show/hide handler.
func IsListenerFailed(err error) bool {
	return hasCode(err, ErrCodeListenerFailed)
}

// IsStorageUnavailable returns true if err reports an unusable counter store.
func IsStorageUnavailable(err error) bool {
	return hasCode(err, ErrCodeStorageUnavailable)
}

func newMissingElementError(id string) *Error {
	return &Error{
		Code:    ErrCodeMissingElement,
		Message: "register requires an element",
		PopupID: id,
	}
}

func newListenerError(id string, event EventType, err error) *Error {
	return &Error{
		Code:    ErrCodeListenerFailed,
		Message: fmt.Sprintf("%s listener failed", event),
		PopupID: id,
		Err:     err,
	}
}

func newStorageError(id, op, key string, err error) *Error {
	return &Error{
		Code:    ErrCodeStorageUnavailable,
		Message: fmt.Sprintf("%s %s", op, key),
		PopupID: id,
		Err:     err,
	}
}
