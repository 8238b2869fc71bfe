package errors

import (
	"errors"
	"fmt"
)

// Kind classifies errors coming back from the profile-fetching boundary.
// Everything above the Instagram client dispatches on these kinds only,
// never on transport-specific error types.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindRateLimited      Kind = "rate_limited"
	KindConnectionFailed Kind = "connection_failed"
	KindUnknown          Kind = "unknown"
)

// Error represents a classified error from the fetching boundary
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New creates a classified error
func New(kind Kind, message string, code int) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// Classify returns the kind of an error, KindUnknown for anything
// that did not originate at the fetching boundary.
func Classify(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsConnection reports whether the error is a transport/connection-class
// failure. Rate limiting counts: the upstream is telling us to slow down,
// and the sweep treats both the same way.
func IsConnection(err error) bool {
	switch Classify(err) {
	case KindConnectionFailed, KindRateLimited:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether the error indicates a missing profile
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// KindFromStatusCode maps an HTTP status code to an error kind.
// Code 0 means the request never produced a response.
func KindFromStatusCode(statusCode int) Kind {
	switch {
	case statusCode == 404:
		return KindNotFound
	case statusCode == 429:
		return KindRateLimited
	case statusCode == 0 || statusCode >= 500:
		return KindConnectionFailed
	default:
		return KindUnknown
	}
}
