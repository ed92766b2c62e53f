// Correlatus - CHSH Game Analytics and Live Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/correlatus

package cache

import "sync"

// selectiveEntry is an entry in the SelectiveCache's recency list.
type selectiveEntry struct {
	key   string
	value any
	prev  *selectiveEntry
	next  *selectiveEntry
}

// SelectiveCache is a bounded, thread-safe LRU cache keyed by encoded
// argument strings, supporting exact (non-substring) invalidation of all
// entries belonging to one team identifier.
//
// It uses a doubly-linked list for recency ordering and a hashmap for O(1)
// lookups, with sentinel head/tail nodes: head.next is the most recently
// used entry, tail.prev the least recently used.
//
// Every operation holds the cache's single mutex for its full duration.
// Get mutates recency order as a side effect of a read, so there is no
// read-lock fast path.
type SelectiveCache struct {
	mu sync.Mutex

	maxsize int
	items   map[string]*selectiveEntry
	head    *selectiveEntry
	tail    *selectiveEntry

	hits      int64
	misses    int64
	evictions int64
}

// NewSelectiveCache creates a cache holding at most maxsize entries.
func NewSelectiveCache(maxsize int) *SelectiveCache {
	if maxsize <= 0 {
		maxsize = 128
	}
	c := &SelectiveCache{
		maxsize: maxsize,
		items:   make(map[string]*selectiveEntry, maxsize),
		head:    &selectiveEntry{},
		tail:    &selectiveEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a value. On hit the entry becomes most recently used.
func (c *SelectiveCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.moveToFront(entry)
	c.hits++
	return entry.value, true
}

// Set stores a value and reports whether an older entry was evicted to
// make room. If the key already exists its value is replaced and its
// recency refreshed in place; no eviction is triggered. If the key is new
// and the cache is full, the single least-recently-used entry is evicted
// first.
func (c *SelectiveCache) Set(key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		entry.value = value
		c.moveToFront(entry)
		return false
	}

	evicted := false
	if len(c.items) >= c.maxsize {
		evicted = c.evictOldest()
	}

	entry := &selectiveEntry{key: key, value: value}
	c.addToFront(entry)
	c.items[key] = entry
	return evicted
}

// InvalidateTeam removes every entry whose key contains the team
// identifier as a whole argument token, and returns how many were removed.
// Entries for teams whose identifiers are superstrings or substrings of
// the target survive.
func (c *SelectiveCache) InvalidateTeam(teamID string) int {
	matcher := NewTeamMatcher(teamID)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for entry := c.head.next; entry != c.tail; {
		next := entry.next
		if matcher.Matches(entry.key) {
			c.removeEntry(entry)
			removed++
		}
		entry = next
	}
	return removed
}

// Clear empties the cache and its recency order unconditionally.
func (c *SelectiveCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*selectiveEntry, c.maxsize)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Len returns the current number of entries.
func (c *SelectiveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns hit/miss/eviction counters and the current size.
func (c *SelectiveCache) Stats() (hits, misses, evictions int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evictions, len(c.items)
}

// Internal methods (must be called with mu held)

func (c *SelectiveCache) addToFront(entry *selectiveEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *SelectiveCache) moveToFront(entry *selectiveEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *SelectiveCache) removeEntry(entry *selectiveEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *SelectiveCache) evictOldest() bool {
	oldest := c.tail.prev
	if oldest == c.head {
		return false
	}
	c.removeEntry(oldest)
	c.evictions++
	return true
}
