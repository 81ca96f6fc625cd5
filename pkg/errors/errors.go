package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkError wraps a transport failure where no response was received.
// Callers surface it as a generic "server unreachable" condition; the
// downloader retries on the next poll cycle instead of treating it as fatal.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("server unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError marks a session-fatal authentication failure (401 after a
// failed refresh, or 403). Local credentials must be cleared and the
// caller re-authenticated; never retried silently.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ErrSessionExpired is returned once the transparent token refresh has
// been exhausted.
var ErrSessionExpired = &AuthError{Message: "session expired, please sign in again"}

// DomainError is a 4xx response with a message body, surfaced verbatim to
// the initiating action. Never escalated to a session-level failure.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// ForbiddenOperation marks an operation the caller is not allowed to
// perform on otherwise-valid data, e.g. removing a menu-sourced video
// assignment.
type ForbiddenOperation struct {
	Message string
}

func (e *ForbiddenOperation) Error() string { return e.Message }

// NewForbiddenOperation creates a ForbiddenOperation error.
func NewForbiddenOperation(message string) *ForbiddenOperation {
	return &ForbiddenOperation{Message: message}
}

// QuotaError is a third-party generation provider quota/rate-limit
// failure rewritten into an actionable message. The backend relays
// provider error text verbatim, so the rewrite happens client-side.
type QuotaError struct {
	Message string
	Raw     string
}

func (e *QuotaError) Error() string { return e.Message }

// quotaPatterns are matched case-insensitively against provider error text.
var quotaPatterns = []string{
	"quota",
	"rate limit",
	"resource_exhausted",
	"too many requests",
	"429",
}

func matchesQuota(message string) bool {
	lower := strings.ToLower(message)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// FromStatus classifies an HTTP error response into the taxonomy.
// message may be empty; a default is substituted per class.
func FromStatus(status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "authentication failed"
		}
		return &AuthError{Message: message}
	case status == http.StatusTooManyRequests || matchesQuota(message):
		return &QuotaError{
			Message: "the provider's usage quota has been reached; wait a few minutes or raise the plan limit before retrying",
			Raw:     message,
		}
	case status >= 400 && status < 500:
		if message == "" {
			message = http.StatusText(status)
		}
		return &DomainError{Status: status, Message: message}
	default:
		if message == "" {
			message = http.StatusText(status)
		}
		return &DomainError{Status: status, Message: fmt.Sprintf("server error (%d): %s", status, message)}
	}
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsAuth reports whether err is session-fatal.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsForbiddenOperation reports whether err is a ForbiddenOperation.
func IsForbiddenOperation(err error) bool {
	var fo *ForbiddenOperation
	return errors.As(err, &fo)
}

// IsQuota reports whether err is a provider quota/rate-limit failure.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}
