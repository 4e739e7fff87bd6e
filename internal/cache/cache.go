// Package cache stores machine translations keyed by provider, language pair
// and source text.
//
// Cache never reports backend failures to its callers: an unreachable store
// turns every lookup into a miss and every write into a no-op, so translation
// keeps working while the store is down.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// DefaultTTL is how long a translation stays retrievable after it is written.
const DefaultTTL = time.Hour

const namespace = "mt:"

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("cache store closed")

// Store is a key/value backend with per-key expiry.
type Store interface {
	// Get returns the value for key. found is false for missing or expired keys.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes value under key for ttl. A later Set wins.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Purger is implemented by stores that keep expired entries until told to
// drop them. Redis expires keys on its own and does not implement it.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// Key derives the cache key for a translation: the namespace followed by the
// first 16 hex characters of a BLAKE2b-256 digest of "provider:src:tgt:text".
func Key(provider, src, tgt, text string) string {
	sum := blake2b.Sum256([]byte(provider + ":" + src + ":" + tgt + ":" + text))
	return namespace + hex.EncodeToString(sum[:])[:16]
}

// Cache is a translation cache on top of a Store.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *zap.Logger
}

// New wraps store. A nil store yields a cache that never hits.
func New(store Store, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{store: store, ttl: ttl, log: log}
}

// TTL returns the default lifetime used by Store when none is given.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Lookup returns the cached translation of text, if any.
func (c *Cache) Lookup(ctx context.Context, provider, src, tgt, text string) (string, bool) {
	if c.store == nil {
		return "", false
	}
	key := Key(provider, src, tgt, text)
	value, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Debug("cache lookup failed, treating as miss", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return value, found
}

// Store caches translation for ttl, or for the cache's default TTL when ttl
// is zero. Failures are logged and dropped.
func (c *Cache) Store(ctx context.Context, provider, src, tgt, text, translation string, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	key := Key(provider, src, tgt, text)
	if err := c.store.Set(ctx, key, translation, ttl); err != nil {
		c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Purge drops expired entries from stores that implement Purger.
func (c *Cache) Purge(ctx context.Context) int64 {
	p, ok := c.store.(Purger)
	if !ok {
		return 0
	}
	n, err := p.Purge(ctx)
	if err != nil {
		c.log.Warn("cache purge failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		c.log.Debug("purged expired translations", zap.Int64("count", n))
	}
	return n
}

// RunPurger calls Purge every interval until ctx is done. It returns at once
// when the store expires entries itself.
func (c *Cache) RunPurger(ctx context.Context, interval time.Duration) {
	if _, ok := c.store.(Purger); !ok || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Purge(ctx)
		}
	}
}

// Connected reports whether the underlying store answers a ping.
func (c *Cache) Connected(ctx context.Context) bool {
	if c.store == nil {
		return false
	}
	return c.store.Ping(ctx) == nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}
