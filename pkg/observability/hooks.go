// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without making the engine
// depend on a specific backend. The binary registers hooks at startup; the
// engine packages call them to emit events about checks, cache operations and
// registry requests.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetCacheHooks(myCacheHooks)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Cache().OnCacheHit(ctx, "sqlite")
//	observability.Engine().OnConflicts(ctx, errs, warnings)
//
// [PrometheusHooks] implements every hook interface on top of
// prometheus/client_golang.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Engine Hooks
// =============================================================================

// EngineHooks receives events from the update checker and the peer resolver.
type EngineHooks interface {
	// OnCheckComplete records a finished update check.
	OnCheckComplete(ctx context.Context, policy string, updates, failures int, duration time.Duration)

	// OnGraphBuilt records a finished peer-graph build.
	OnGraphBuilt(ctx context.Context, nodes, unknown int, duration time.Duration)

	// OnConflicts records the outcome of a conflict resolution.
	OnConflicts(ctx context.Context, errors, warnings int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from version cache operations.
// backend is the backend kind ("sqlite", "json", "redis").
type CacheHooks interface {
	// OnCacheHit records a lookup that returned a valid entry.
	OnCacheHit(ctx context.Context, backend string)

	// OnCacheMiss records a lookup with no valid entry.
	OnCacheMiss(ctx context.Context, backend string)

	// OnCacheStale records a lookup served from an expired entry.
	OnCacheStale(ctx context.Context, backend string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, backend string)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from registry HTTP requests.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEngineHooks is a no-op implementation of EngineHooks.
type NoopEngineHooks struct{}

func (NoopEngineHooks) OnCheckComplete(context.Context, string, int, int, time.Duration) {}
func (NoopEngineHooks) OnGraphBuilt(context.Context, int, int, time.Duration)            {}
func (NoopEngineHooks) OnConflicts(context.Context, int, int)                            {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)   {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)  {}
func (NoopCacheHooks) OnCacheStale(context.Context, string) {}
func (NoopCacheHooks) OnCacheSet(context.Context, string)   {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	engineHooks EngineHooks = NoopEngineHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetEngineHooks registers custom engine hooks.
// This should be called once at application startup.
func SetEngineHooks(h EngineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		engineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Engine returns the registered engine hooks.
func Engine() EngineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return engineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Register installs h for every hook interface it implements.
func Register(h any) {
	if e, ok := h.(EngineHooks); ok {
		SetEngineHooks(e)
	}
	if c, ok := h.(CacheHooks); ok {
		SetCacheHooks(c)
	}
	if x, ok := h.(HTTPHooks); ok {
		SetHTTPHooks(x)
	}
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	engineHooks = NoopEngineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
