package streams

import (
	"errors"
	"fmt"
)

// Error codes carried by StreamError. Stable strings, so callers can
// match without importing sentinel values.
const (
	ErrCodeStreamNotFound = "STREAM_NOT_FOUND"
	ErrCodeStreamExists   = "STREAM_EXISTS"
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
	ErrCodeStoreError     = "STORE_ERROR"
)

// StreamError carries a machine-readable code alongside the message.
type StreamError struct {
	Code    string
	Message string
	Cause   error
}

// NewStreamError builds a StreamError; cause may be nil.
func NewStreamError(code, message string, cause error) *StreamError {
	return &StreamError{Code: code, Message: message, Cause: cause}
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *StreamError) Unwrap() error { return e.Cause }

// HasCode reports whether err is a StreamError with the given code.
func HasCode(err error, code string) bool {
	var se *StreamError
	return errors.As(err, &se) && se.Code == code
}
