package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("cache closed")

	// ErrCorrupt is returned when a backing store cannot be decoded.
	ErrCorrupt = errors.New("cache store corrupt")
)
