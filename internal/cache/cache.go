// Package cache holds client-side copies of server lists. A load always
// replaces the whole list; nothing is merged.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetcher reads the authoritative list.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

type Collection[T any] struct {
	name  string
	fetch Fetcher[T]
	log   *logrus.Entry

	mu       sync.RWMutex
	items    []T
	loaded   bool
	lastErr  error
	loadedAt time.Time
}

func NewCollection[T any](name string, fetch Fetcher[T], log *logrus.Entry) *Collection[T] {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Collection[T]{name: name, fetch: fetch, log: log.WithField("cache", name)}
}

// Reload fetches the list and replaces the cache. A failed fetch leaves the
// cache empty; the error is logged and returned for callers that care.
func (c *Collection[T]) Reload(ctx context.Context) error {
	items, err := c.fetch(ctx)
	if err != nil {
		c.log.WithError(err).Error("Failed to load list")
		items = nil
	}
	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.lastErr = err
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return err
}

// Items returns a copy of the cached list.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Replace swaps in a list obtained elsewhere.
func (c *Collection[T]) Replace(items []T) {
	c.mu.Lock()
	c.items = append([]T(nil), items...)
	c.loaded = true
	c.lastErr = nil
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Collection[T]) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Collection[T]) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Value caches a single server object such as dashboard stats.
type Value[T any] struct {
	mu    sync.RWMutex
	value T
	set   bool
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.value = val
	v.set = true
	v.mu.Unlock()
}

func (v *Value[T]) Get() (T, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value, v.set
}

func (v *Value[T]) Reset() {
	v.mu.Lock()
	var zero T
	v.value = zero
	v.set = false
	v.mu.Unlock()
}
