// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in this module emit events through a global hook registry
// with no-op defaults. Binaries register concrete hooks at startup, for
// example the Prometheus implementation in [NewPromHooks]:
//
//	func main() {
//	    h := observability.NewPromHooks(prometheus.DefaultRegisterer)
//	    observability.SetSplitHooks(h)
//	    observability.SetCacheHooks(h)
//	    // ... run application
//	}
//
// Libraries call hooks around the work they do:
//
//	observability.Split().OnSplitStart(ctx, readoutID, len(hits))
//	// ... cluster ...
//	observability.Split().OnSplitComplete(ctx, readoutID, stats, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// SplitStats summarizes one clustering run for metrics.
type SplitStats struct {
	Hits      int
	Subevents int
	Noise     int
	Rejected  int
}

// SplitHooks receives events from the splitting pipeline.
type SplitHooks interface {
	OnSplitStart(ctx context.Context, readoutID string, hits int)
	OnSplitComplete(ctx context.Context, readoutID string, stats SplitStats, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	// OnResponse records a served request. route is the route pattern,
	// not the raw path, to keep label cardinality bounded.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// NoopSplitHooks is a no-op implementation of SplitHooks.
type NoopSplitHooks struct{}

func (NoopSplitHooks) OnSplitStart(context.Context, string, int) {}
func (NoopSplitHooks) OnSplitComplete(context.Context, string, SplitStats, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

var (
	splitHooks SplitHooks = NoopSplitHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetSplitHooks registers split hooks. A nil argument is ignored.
func SetSplitHooks(h SplitHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		splitHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil argument is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. A nil argument is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Split returns the registered split hooks.
func Split() SplitHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return splitHooks
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

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	splitHooks = NoopSplitHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
