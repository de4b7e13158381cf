package arxiv

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the arXiv client.
var (
	// ErrNotFound indicates the requested paper or file does not exist.
	ErrNotFound = errors.New("not found on arXiv")

	// ErrRateLimited indicates arXiv rejected the request for rate reasons.
	ErrRateLimited = errors.New("arXiv rate limit exceeded")

	// ErrInvalidResponse indicates a response that could not be parsed.
	ErrInvalidResponse = errors.New("invalid response from arXiv")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with arXiv")
)

// APIError represents a non-success HTTP status from arXiv.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("arXiv API error (status %d): %s (url: %s)", e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("arXiv API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			URL:        resp.Request.URL.String(),
		}
	}
	return nil
}
