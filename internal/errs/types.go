// Package errs carries the SDK's error taxonomy: transport
// classification for retry decisions, the closed authentication error
// set, channel failure codes, and local validation errors.
package errs

import (
	"errors"
	"fmt"
)

// Category determines how an error should be handled by retry logic.
type Category int

const (
	// Recoverable errors may be retried by the caller's policy.
	// Examples: 5xx responses, timeouts, connection resets.
	Recoverable Category = iota

	// Irrecoverable errors must fail immediately. Examples: 400, 401,
	// 403, 404. An irrecoverable auth status additionally forces local
	// session invalidation.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "recoverable"
	case Irrecoverable:
		return "irrecoverable"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ClassifiedError wraps a transport failure with retry metadata.
type ClassifiedError struct {
	Category   Category
	StatusCode int // 0 for non-HTTP failures
	Body       string
	Underlying error
}

func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

func (e *ClassifiedError) Unwrap() error { return e.Underlying }

// IsIrrecoverable reports whether err must not be retried.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	return errors.As(err, &ce) && ce.Category == Irrecoverable
}

// IsAuthStatus reports whether err is a credential rejection (401/403).
// These force the session to Unauthenticated; there is no retry path
// for a rejected credential.
func IsAuthStatus(err error) bool {
	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.StatusCode == 401 || ce.StatusCode == 403
}

// ValidationError flags malformed input caught before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
