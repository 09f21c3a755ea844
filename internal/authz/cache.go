// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

package authz

import (
	"sync"
	"time"

	"github.com/praetor-sec/praetor/internal/models"
)

// decisionCache caches role/permission decisions.
type decisionCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]*cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

// newDecisionCache creates a new cache. Non-positive TTLs fall back to the
// 5-minute default.
func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &decisionCache{
		ttl:      ttl,
		items:    make(map[string]*cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// key generates a cache key.
func (c *decisionCache) key(role string, p models.Permission) string {
	return role + ":" + p.String()
}

// get retrieves a cached decision.
func (c *decisionCache) get(role string, p models.Permission) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[c.key(role, p)]
	if !ok {
		return false, false
	}

	if time.Now().After(item.expiresAt) {
		return false, false
	}

	return item.allowed, true
}

// set stores a decision in the cache.
func (c *decisionCache) set(role string, p models.Permission, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[c.key(role, p)] = &cacheItem{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired items.
func (c *decisionCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// stop stops the cleanup goroutine. Safe to call multiple times.
func (c *decisionCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
