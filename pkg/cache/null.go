package cache

import "context"

// NullBackend is a no-op backend that never stores anything.
// Used when caching is disabled (--no-cache) and in tests.
type NullBackend struct{}

// NewNull creates a VersionCache that never stores anything.
func NewNull() *VersionCache {
	return New(NullBackend{}, Status{Backend: BackendNull})
}

func (NullBackend) Kind() BackendKind { return BackendNull }

// Get always returns a miss.
func (NullBackend) Get(context.Context, string, string) (*Entry, error) { return nil, nil }

// Put does nothing.
func (NullBackend) Put(context.Context, *Entry) error { return nil }

func (NullBackend) Len(context.Context) (int, error)   { return 0, nil }
func (NullBackend) Clear(context.Context) (int, error) { return 0, nil }
func (NullBackend) Close() error                       { return nil }

// Ensure NullBackend implements Backend.
var _ Backend = NullBackend{}
