// Package lru implements a generic, thread-safe LRU cache whose entries
// expire after a fixed TTL.
//
// The Discord adapter keeps channel kinds and role names here so that
// every gateway event does not cost a REST round trip.
package lru

import (
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key     K
	val     V
	expires time.Time
	prev    *entry[K, V]
	next    *entry[K, V]
}

// Cache is a fixed-capacity LRU cache with per-entry expiry.
// A zero TTL means entries never expire.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[K]*entry[K, V]
	root     entry[K, V] // sentinel: root.next is most recent, root.prev least
	now      func() time.Time
}

// New creates a cache. Panics if capacity < 1.
func New[K comparable, V any](capacity int, ttl time.Duration) *Cache[K, V] {
	if capacity < 1 {
		panic("lru: capacity must be >= 1")
	}
	c := &Cache[K, V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[K]*entry[K, V], capacity),
		now:      time.Now,
	}
	c.root.next = &c.root
	c.root.prev = &c.root
	return c
}

// Get returns a live value and marks it most recently used.
// Expired entries are dropped on access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.expired(e) {
		c.unlink(e)
		delete(c.items, key)
		return zero, false
	}
	c.unlink(e)
	c.pushFront(e)
	return e.val, true
}

// Put inserts or refreshes a value, evicting the least recently used entry
// when full.
func (c *Cache[K, V]) Put(key K, val V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.val = val
		e.expires = c.deadline()
		c.unlink(e)
		c.pushFront(e)
		return
	}

	if len(c.items) >= c.capacity {
		victim := c.root.prev
		c.unlink(victim)
		delete(c.items, victim.key)
	}

	e := &entry[K, V]{key: key, val: val, expires: c.deadline()}
	c.items[key] = e
	c.pushFront(e)
}

// Delete removes key. Returns true if it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.unlink(e)
	delete(c.items, key)
	return true
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache[K, V]) deadline() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

func (c *Cache[K, V]) expired(e *entry[K, V]) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

// caller must hold mu
func (c *Cache[K, V]) unlink(e *entry[K, V]) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

// caller must hold mu
func (c *Cache[K, V]) pushFront(e *entry[K, V]) {
	e.next = c.root.next
	e.prev = &c.root
	c.root.next.prev = e
	c.root.next = e
}
