// Package dedupe remembers recently attempted files so the poller does not pick
// them up again until a time-to-live has passed.
//
// Entries are inserted when a file is selected, before the ingest attempt, so a
// live entry suppresses duplicates and also spaces out retries of failed files:
// a failed attempt is retried no sooner than the cache TTL.
package dedupe

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Key identifies a file within one ingestion set.
type Key struct {
	Set  string
	Name string
}

// Cache is a time-expiring set of Keys. It is safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[Key, struct{}]
	ttl time.Duration
}

// New creates a cache whose entries live for ttl. maxEntries bounds memory;
// zero means unbounded.
func New(ttl time.Duration, maxEntries int) *Cache {
	return &Cache{
		lru: expirable.NewLRU[Key, struct{}](maxEntries, nil, ttl),
		ttl: ttl,
	}
}

// Contains reports whether key has a live (non-expired) entry.
func (c *Cache) Contains(key Key) bool {
	_, ok := c.lru.Peek(key)
	return ok
}

// Add marks key as attempted for the next TTL.
func (c *Cache) Add(key Key) {
	c.lru.Add(key, struct{}{})
}

// Remove forgets key immediately.
func (c *Cache) Remove(key Key) {
	c.lru.Remove(key)
}

// Len returns the number of entries held, including ones that expired but
// have not been swept yet.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
