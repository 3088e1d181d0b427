package cache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	group     string
	expiresAt time.Time
}

// Cache is a process-local key/value cache with group invalidation.
// Repositories own an instance via their constructor; there is no
// package-level singleton.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	groups  map[string]map[string]struct{}
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		groups:  make(map[string]map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		c.removeLocked(key)
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key, group string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}
	c.entries[key] = entry{value: value, group: group, expiresAt: expiresAt}

	if group != "" {
		members, ok := c.groups[group]
		if !ok {
			members = make(map[string]struct{})
			c.groups[group] = members
		}
		members[key] = struct{}{}
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// InvalidateGroup drops every key registered under the group.
func (c *Cache) InvalidateGroup(group string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.groups[group] {
		delete(c.entries, key)
	}
	delete(c.groups, group)
}

func (c *Cache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	if e.group != "" {
		if members, ok := c.groups[e.group]; ok {
			delete(members, key)
			if len(members) == 0 {
				delete(c.groups, e.group)
			}
		}
	}
}
