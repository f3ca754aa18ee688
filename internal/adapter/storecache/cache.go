// Package storecache puts an in-memory LRU in front of an artifact store.
package storecache

import (
	"context"
	"sync"
)

// Backend is the artifact store being cached.
type Backend interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	List(ctx context.Context) ([]string, error)
}

// Store wraps a Backend with a read-through, write-through LRU cache.
// Cached slices are shared between callers and must not be modified.
type Store struct {
	inner Backend
	cache *lruCache
}

// New creates a cache decorator holding at most maxEntries artifacts.
func New(inner Backend, maxEntries int) *Store {
	return &Store{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.get(name); ok {
		return data, nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		// Misses are not cached so an artifact written elsewhere shows up.
		return nil, err
	}
	s.cache.put(name, data)
	return data, nil
}

func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		s.cache.remove(name)
		return err
	}
	s.cache.put(name, data)
	return nil
}

// List always asks the backend.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

// CheckReadiness forwards to the backend when it can be pinged.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if c, ok := s.inner.(interface {
		CheckReadiness(ctx context.Context) error
	}); ok {
		return c.CheckReadiness(ctx)
	}
	return nil
}

// lruCache is a thread-safe LRU of artifact contents keyed by name.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []byte
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []byte) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evict(c.tail)
	}
}

func (c *lruCache) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.evict(e)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evict(e *entry) {
	if e == nil {
		return
	}
	delete(c.entries, e.key)
	c.unlink(e)
}
