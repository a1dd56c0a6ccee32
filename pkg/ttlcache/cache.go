// Package ttlcache implements a generic, thread-safe cache whose
// entries expire after a fixed TTL, with LRU eviction when the cache
// is at capacity.
//
// Get, Put, Delete and Len are O(1). Expiry is checked lazily on
// access; PurgeExpired sweeps the whole cache.
package ttlcache

import (
	"sync"
	"time"
)

// node is a doubly linked list node holding one cache entry.
type node[K comparable, V any] struct {
	key      K
	val      V
	storedAt time.Time
	prev     *node[K, V]
	next     *node[K, V]
}

// Cache is a generic, thread-safe TTL cache. K must be comparable.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[K]*node[K, V]
	head     *node[K, V] // most recently used (sentinel)
	tail     *node[K, V] // least recently used (sentinel)
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithClock replaces the cache's time source. Tests use this to step
// through the TTL without sleeping.
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *Cache[K, V]) { c.now = now }
}

// New creates a cache holding at most capacity entries, each valid for
// ttl after insertion. Panics if capacity < 1 or ttl <= 0.
func New[K comparable, V any](capacity int, ttl time.Duration, opts ...Option[K, V]) *Cache[K, V] {
	if capacity < 1 {
		panic("ttlcache: capacity must be >= 1")
	}
	if ttl <= 0 {
		panic("ttlcache: ttl must be positive")
	}

	head := &node[K, V]{}
	tail := &node[K, V]{}
	head.next = tail
	tail.prev = head

	c := &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[K]*node[K, V], capacity),
		head:     head,
		tail:     tail,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a live value by key. Expired entries are removed and
// reported as absent.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(n) {
		c.evict(n)
		var zero V
		return zero, false
	}
	c.moveToFront(n)
	return n.val, true
}

// Put inserts or refreshes a key-value pair, resetting its TTL. When
// the cache is at capacity the least recently used entry is evicted.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.items[key]; ok {
		n.val = val
		n.storedAt = c.now()
		c.moveToFront(n)
		return
	}

	if len(c.items) >= c.capacity {
		c.evict(c.tail.prev)
	}

	n := &node[K, V]{key: key, val: val, storedAt: c.now()}
	c.items[key] = n
	c.pushFront(n)
}

// Delete removes a key. Returns true if the key was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		return false
	}
	c.evict(n)
	return true
}

// Len returns the number of entries, including any not yet swept
// expired ones.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[K]*node[K, V], c.capacity)
}

// PurgeExpired removes every expired entry and returns how many were
// dropped.
func (c *Cache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for cur := c.tail.prev; cur != c.head; {
		prev := cur.prev
		if c.expired(cur) {
			c.evict(cur)
			count++
		}
		cur = prev
	}
	return count
}

// --- internal operations (caller must hold lock) ---

func (c *Cache[K, V]) expired(n *node[K, V]) bool {
	return c.now().Sub(n.storedAt) >= c.ttl
}

func (c *Cache[K, V]) evict(n *node[K, V]) {
	c.remove(n)
	delete(c.items, n.key)
}

func (c *Cache[K, V]) remove(n *node[K, V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

func (c *Cache[K, V]) pushFront(n *node[K, V]) {
	n.next = c.head.next
	n.prev = c.head
	c.head.next.prev = n
	c.head.next = n
}

func (c *Cache[K, V]) moveToFront(n *node[K, V]) {
	c.remove(n)
	c.pushFront(n)
}
