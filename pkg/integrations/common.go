package integrations

import (
	"errors"
	"net/http"
	"time"
)

// httpTimeout caps a single request when the caller supplies no deadline.
const httpTimeout = 30 * time.Second

// DefaultTimeout is the per-attempt budget used when callers pass zero.
const DefaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the registry.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with a standard timeout for registry requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}
