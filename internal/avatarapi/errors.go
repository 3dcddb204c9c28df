package avatarapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable wraps transport failures: DNS, connection, timeout.
	ErrUnavailable = errors.New("avatar api unavailable")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("avatar api key not configured")
)

// APIError is a non-2xx response from the avatar API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("avatar api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("avatar api: status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

// shouldRetry is IsRetryable narrowed to rate limiting for requests that
// must not be repeated once the API may have acted on them.
func shouldRetry(err error, idempotent bool) bool {
	if idempotent {
		return IsRetryable(err)
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
