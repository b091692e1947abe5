package errs

import "fmt"

// ClassifyHTTPStatus maps an HTTP status code to a retry category.
// 4xx is irrecoverable except 408 and 429; 5xx and anything unexpected
// is recoverable.
func ClassifyHTTPStatus(statusCode int) Category {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	default:
		return Recoverable
	}
}

// NewHTTPError builds a classified error for a non-success response.
func NewHTTPError(statusCode int, body, operation string) *ClassifiedError {
	return &ClassifiedError{
		Category:   ClassifyHTTPStatus(statusCode),
		StatusCode: statusCode,
		Body:       body,
		Underlying: fmt.Errorf("%s failed: HTTP %d", operation, statusCode),
	}
}

// NewNetworkError builds a classified error for a transport-level
// failure. Network errors are always recoverable; they may be transient
// and never by themselves invalidate a session.
func NewNetworkError(operation string, err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		Underlying: fmt.Errorf("%s network error: %w", operation, err),
	}
}
