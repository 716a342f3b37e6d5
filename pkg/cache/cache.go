// Package cache stores serialized split results keyed by a content hash of
// the readout and the splitter configuration.
//
// Three backends share the [Cache] interface: [NullCache] for disabled
// caching, [FileCache] for the CLI and [RedisCache] for the HTTP server.
// Keys are produced by a [Keyer] so that the CLI and the server agree on
// them.
package cache

import (
	"context"
	"time"
)

// Default lifetimes for cached entries.
const (
	ResultTTL   = 24 * time.Hour
	TopologyTTL = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. The boolean is false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}
