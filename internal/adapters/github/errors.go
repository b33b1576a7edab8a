package github

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Every error returned by Client wraps one of them.
var (
	ErrNotFound    = errors.New("github: not found")
	ErrRateLimited = errors.New("github: rate limited")
	ErrUpstream    = errors.New("github: upstream failure")
	ErrAuth        = errors.New("github: authentication failed")
)

// APIError is a non-2xx GitHub response.
type APIError struct {
	Operation   string
	StatusCode  int
	Message     string
	RateLimited bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Unwrap maps the status onto a sentinel kind.
func (e *APIError) Unwrap() error {
	switch {
	case e.RateLimited || e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusUnauthorized:
		return ErrAuth
	default:
		return ErrUpstream
	}
}
