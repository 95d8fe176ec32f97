// package cache provides a small read-through cache over ccache.
//
// Entries carry an explicit TTL. An expired entry is still returned by [ReadThrough.Get] with
// stale set, so callers can show it while a fresh value is fetched.
package cache

import (
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
)

var (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxSize = int64(500)
)

// ReadThrough caches values of type T by string key. All access is serialized.
type ReadThrough[T any] struct {
	c   *ccache.Cache[T]
	ttl time.Duration
	mux sync.Mutex
}

// New creates a cache holding at most maxSize entries that live for ttl.
// Non-positive arguments fall back to [DefaultTTL] and [DefaultMaxSize].
func New[T any](ttl time.Duration, maxSize int64) *ReadThrough[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	c := ccache.New(
		ccache.Configure[T]().
			MaxSize(maxSize).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)
	return &ReadThrough[T]{c: c, ttl: ttl}
}

// TTL returns the lifetime of new entries.
func (c *ReadThrough[T]) TTL() time.Duration { return c.ttl }

// Get returns the cached value for key. stale reports an expired entry; ok is false on a miss.
func (c *ReadThrough[T]) Get(key string) (value T, stale bool, ok bool) {
	c.mux.Lock()
	defer c.mux.Unlock()

	item := c.c.Get(key)
	if item == nil {
		return value, false, false
	}
	return item.Value(), item.Expired(), true
}

// Fetch returns the live cached value for key or loads it with fetch and caches the result.
// Errors from fetch are returned and nothing is cached.
func (c *ReadThrough[T]) Fetch(key string, fetch func() (T, error)) (T, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	item, err := c.c.Fetch(key, c.ttl, fetch)
	if err != nil {
		var zero T
		return zero, err
	}
	return item.Value(), nil
}

// Set stores value under key with the default TTL.
func (c *ReadThrough[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl.
func (c *ReadThrough[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.c.Set(key, value, ttl)
}

// Invalidate drops key and reports whether it was present.
func (c *ReadThrough[T]) Invalidate(key string) bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.Delete(key)
}

// Reconcile replaces the entry for key with the result of fresh, which should read the backing store.
// When fresh fails the entry is dropped so the next read goes to the store.
func (c *ReadThrough[T]) Reconcile(key string, fresh func() (T, error)) error {
	value, err := fresh()

	c.mux.Lock()
	defer c.mux.Unlock()
	if err != nil {
		c.c.Delete(key)
		return err
	}
	c.c.Set(key, value, c.ttl)
	return nil
}

// Len returns the number of cached entries, expired ones included.
func (c *ReadThrough[T]) Len() int {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.c.ItemCount()
}

// Stop releases the cache's background worker.
func (c *ReadThrough[T]) Stop() {
	c.c.Stop()
}
