package api

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is against any error returned by Client.
var (
	// ErrNetwork means the request never produced an HTTP response
	ErrNetwork = errors.New("network failure")
	// ErrAuth means the login call was rejected
	ErrAuth = errors.New("authentication failed")
	// ErrGeneration means a content generation call was rejected
	ErrGeneration = errors.New("generation failed")
	// ErrStatus is any other non-2xx response
	ErrStatus = errors.New("unexpected status")
)

// Error describes a failed API operation
type Error struct {
	Op         string
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode extracts the HTTP status from err, or 0
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
