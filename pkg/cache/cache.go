// Package cache provides byte-level caching for render artifacts.
//
// Rendering through Graphviz is the only expensive step in the pipeline,
// so artifacts are cached keyed by a hash of the exact input that produced
// them. A changed diagram or overlay yields a different key; stale entries
// are never served, they are simply never looked up again.
package cache

import (
	"context"
	"time"
)

// TTLArtifact is how long rendered artifacts stay cached. Keys are
// content-addressed, so a long TTL only bounds disk growth.
const TTLArtifact = 14 * 24 * time.Hour

// Cache is the interface for artifact caching backends.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key
	// was present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKey generates the cache key for a rendered artifact: the output
// format plus a hash of the exact render input.
func ArtifactKey(format string, input []byte) string {
	return hashKey("artifact:"+format, input)
}
