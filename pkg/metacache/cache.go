/*
Copyright 2024 The Blob Mounter Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metacache is a short-TTL cache of per-key blob properties and
// per-prefix listings, with prefix-based invalidation. It is generalized
// from perkeep's pkg/lru.Cache: a single mutex guarding plain maps, but
// TTL-expired rather than LRU-evicted, and split across two maps (items,
// listings) instead of one.
package metacache

import (
	"sync"
	"time"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
)

// DefaultTTL is the cache's default time-to-live (spec §4.3).
const DefaultTTL = 30 * time.Second

type itemEntry struct {
	item      blobstore.Item
	insertion time.Time
}

type listingEntry struct {
	items     []blobstore.Item
	insertion time.Time
}

// Cache is a per-mount metadata cache. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Cache struct {
	ttl time.Duration

	mu       sync.RWMutex
	items    map[string]itemEntry
	listings map[string]listingEntry
}

// New returns an empty Cache with the given TTL. A TTL of 0 uses
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:      ttl,
		items:    make(map[string]itemEntry),
		listings: make(map[string]listingEntry),
	}
}

func (c *Cache) dead(insertion time.Time) bool {
	return time.Since(insertion) > c.ttl
}

// GetItem returns the cached Item for key, if present and not expired.
func (c *Cache) GetItem(key string) (blobstore.Item, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return blobstore.Item{}, false
	}
	if c.dead(e.insertion) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return blobstore.Item{}, false
	}
	return e.item, true
}

// SetItem installs info as the cached value for key.
func (c *Cache) SetItem(key string, info blobstore.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = itemEntry{item: info, insertion: time.Now()}
}

// InvalidateItem removes key's cached item, if any.
func (c *Cache) InvalidateItem(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// GetListing returns the cached listing for prefix ("" for root; "a/"
// otherwise), if present and not expired.
func (c *Cache) GetListing(prefix string) ([]blobstore.Item, bool) {
	c.mu.RLock()
	e, ok := c.listings[prefix]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.dead(e.insertion) {
		c.mu.Lock()
		delete(c.listings, prefix)
		c.mu.Unlock()
		return nil, false
	}
	return e.items, true
}

// SetListing installs items as the cached listing for prefix.
func (c *Cache) SetListing(prefix string, items []blobstore.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[prefix] = listingEntry{items: items, insertion: time.Now()}
}

// InvalidatePrefix removes every listing entry whose key is a prefix of
// p or has p as a prefix (both directions, so invalidating "a/b/" also
// drops a stale "a/" listing that contained it), and every item entry
// whose key starts with p. This is deliberately broad: it over-
// invalidates listing siblings' ancestors, which is accepted as
// correct-but-conservative (spec §9 OQ-2).
func (c *Cache) InvalidatePrefix(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.listings {
		if hasPrefix(key, p) || hasPrefix(p, key) {
			delete(c.listings, key)
		}
	}
	for key := range c.items {
		if hasPrefix(key, p) {
			delete(c.items, key)
		}
	}
}

// Clear drops every cached entry. Called on unmount.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]itemEntry)
	c.listings = make(map[string]listingEntry)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// ParentPrefix returns the blob-key prefix of key's immediate parent
// directory ("" for a top-level key), for use with InvalidatePrefix
// after a single-key mutation (spec §4.3's invalidation discipline).
func ParentPrefix(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i+1]
		}
	}
	return ""
}
