package cache

import (
	"context"
	"slices"
	"sync/atomic"
	"time"

	"github.com/matzehuels/peerguard/pkg/observability"
)

// DefaultTTL is how long a registry answer stays valid.
const DefaultTTL = 6 * time.Hour

// Entry is one cached registry answer, keyed by (PackageName, Target).
type Entry struct {
	PackageName       string    `json:"packageName"`
	Target            string    `json:"target"`
	LatestVersion     string    `json:"latestVersion"`
	AvailableVersions []string  `json:"availableVersions"`
	FetchedAt         time.Time `json:"fetchedAt"`
	TTLSeconds        int64     `json:"ttlSeconds"`
}

// ExpiresAt returns the instant after which the entry is no longer valid.
func (e *Entry) ExpiresAt() time.Time {
	return e.FetchedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// Valid reports whether the entry is still fresh at now. An entry written
// with a TTL of zero or less is never valid.
func (e *Entry) Valid(now time.Time) bool {
	if e.TTLSeconds <= 0 {
		return false
	}
	return !now.After(e.ExpiresAt())
}

// Backend is a concrete store for cache entries.
type Backend interface {
	// Kind identifies the backend.
	Kind() BackendKind
	// Get returns the entry for (name, target), or nil if none was ever written.
	Get(ctx context.Context, name, target string) (*Entry, error)
	// Put upserts e, replacing any previous entry for the same key.
	Put(ctx context.Context, e *Entry) error
	// Len returns the number of stored entries.
	Len(ctx context.Context) (int, error)
	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
	// Close releases the backend.
	Close() error
}

// BackendKind names a backend implementation.
type BackendKind string

const (
	BackendAuto   BackendKind = ""
	BackendSQLite BackendKind = "sqlite"
	BackendJSON   BackendKind = "json"
	BackendRedis  BackendKind = "redis"
	BackendNull   BackendKind = "null"
)

// Status describes which backend a VersionCache ended up on and why.
type Status struct {
	Backend        BackendKind `json:"backend"`
	Location       string      `json:"location,omitempty"`
	Degraded       bool        `json:"degraded"`
	FallbackReason string      `json:"fallbackReason,omitempty"`
}

// VersionCache stores the latest version and version list observed per
// (package, target) pair, each with a fetch time and TTL.
//
// A VersionCache is safe for concurrent use; every operation is atomic with
// respect to its backend.
type VersionCache struct {
	backend Backend
	status  Status
	now     func() time.Time
	closed  atomic.Bool
}

// New wraps an already opened backend. Most callers use [Open] instead.
func New(b Backend, status Status) *VersionCache {
	if status.Backend == BackendAuto {
		status.Backend = b.Kind()
	}
	return &VersionCache{backend: b, status: status, now: time.Now}
}

// Status reports the selected backend and whether a fallback occurred.
func (c *VersionCache) Status() Status { return c.status }

// Degraded reports whether the preferred backend could not be used.
func (c *VersionCache) Degraded() bool { return c.status.Degraded }

// FallbackReason explains a degraded status; it is empty otherwise.
func (c *VersionCache) FallbackReason() string { return c.status.FallbackReason }

// GetValid returns the entry for (name, target) if it exists and has not
// expired. It never returns an expired entry.
func (c *VersionCache) GetValid(ctx context.Context, name, target string) (*Entry, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	e, err := c.backend.Get(ctx, name, target)
	if err != nil {
		return nil, err
	}
	kind := string(c.backend.Kind())
	if e == nil || !e.Valid(c.now()) {
		observability.Cache().OnCacheMiss(ctx, kind)
		return nil, nil
	}
	observability.Cache().OnCacheHit(ctx, kind)
	return e, nil
}

// GetAny returns the entry for (name, target) regardless of TTL. It returns
// nil only when no entry was ever written. Used for offline and degraded
// reads.
func (c *VersionCache) GetAny(ctx context.Context, name, target string) (*Entry, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	e, err := c.backend.Get(ctx, name, target)
	if err != nil || e == nil {
		return nil, err
	}
	if !e.Valid(c.now()) {
		observability.Cache().OnCacheStale(ctx, string(c.backend.Kind()))
	}
	return e, nil
}

// Set upserts the entry for (name, target), stamping it with the current
// time. The version list is replaced, not merged.
func (c *VersionCache) Set(ctx context.Context, name, target, latest string, versions []string, ttlSeconds int64) error {
	if c.closed.Load() {
		return ErrClosed
	}
	e := &Entry{
		PackageName:       name,
		Target:            target,
		LatestVersion:     latest,
		AvailableVersions: slices.Clone(versions),
		FetchedAt:         c.now(),
		TTLSeconds:        ttlSeconds,
	}
	if e.AvailableVersions == nil {
		e.AvailableVersions = []string{}
	}
	if err := c.backend.Put(ctx, e); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, string(c.backend.Kind()))
	return nil
}

// Len returns the number of stored entries.
func (c *VersionCache) Len(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.backend.Len(ctx)
}

// Clear removes every entry.
func (c *VersionCache) Clear(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.backend.Clear(ctx)
}

// Close releases the backend. Every later operation fails with [ErrClosed];
// closing again is a no-op.
func (c *VersionCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.backend.Close()
}
