// Package cache provides a goroutine-safe LRU cache of prepared programs
// keyed by source text.
//
// A cache is useful when the same formulas arrive repeatedly, e.g. from
// configuration or user input, and are evaluated against many namespaces.
//
//	c := cache.New(1024)
//	p, err := c.Prepare("x^2 + 1", fastexpr.WithFolding(true))
//
// Keys do not include program options. Use one set of options per cache.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/zephyrtronium/fastexpr"
)

type entry struct {
	key  string
	prog *fastexpr.Program
}

// Cache is an LRU cache of prepared programs. Once the capacity is reached,
// the least recently used entry is evicted.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits, misses atomic.Int64
}

// New creates a cache holding up to capacity programs. If capacity is not
// positive, it is 256.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 256
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get retrieves a program and marks it most recently used.
func (c *Cache) Get(src string) (*fastexpr.Program, bool) {
	c.mu.RLock()
	el, ok := c.items[src]
	front := ok && c.ll.Front() == el
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if !front {
		// Re-check under the write lock in case of a concurrent eviction.
		c.mu.Lock()
		el, ok = c.items[src]
		if ok {
			c.ll.MoveToFront(el)
		}
		c.mu.Unlock()
		if !ok {
			c.misses.Add(1)
			return nil, false
		}
	}
	c.hits.Add(1)
	return el.Value.(*entry).prog, true
}

// Set inserts or replaces a program, evicting the least recently used
// entry if the cache is full.
func (c *Cache) Set(src string, p *fastexpr.Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[src]; ok {
		el.Value.(*entry).prog = p
		c.ll.MoveToFront(el)
		return
	}
	if c.ll.Len() >= c.capacity {
		c.evictLocked()
	}
	c.items[src] = c.ll.PushFront(&entry{key: src, prog: p})
}

// GetOrPrepare returns the cached program for src or calls prepare and
// caches its result. Errors are not cached.
func (c *Cache) GetOrPrepare(src string, prepare func() (*fastexpr.Program, error)) (*fastexpr.Program, error) {
	if p, ok := c.Get(src); ok {
		return p, nil
	}
	p, err := prepare()
	if err != nil {
		return nil, err
	}
	c.Set(src, p)
	return p, nil
}

// Prepare is GetOrPrepare with fastexpr.Prepare.
func (c *Cache) Prepare(src string, opts ...fastexpr.ProgramOption) (*fastexpr.Program, error) {
	return c.GetOrPrepare(src, func() (*fastexpr.Program, error) {
		return fastexpr.Prepare(src, opts...)
	})
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Capacity returns the maximum number of cached programs.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Stats returns the number of lookups that found and missed a program.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Invalidate removes one program.
func (c *Cache) Invalidate(src string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[src]; ok {
		c.ll.Remove(el)
		delete(c.items, src)
	}
}

// Clear removes every program.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// evictLocked removes the least recently used entry. c.mu must be held.
func (c *Cache) evictLocked() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
