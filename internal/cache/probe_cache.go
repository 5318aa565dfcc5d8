// Copyright 2025 ShareFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache provides the TTL cache behind the permission gate, with
// fine-grained invalidation by path so mutations only evict what they
// touched.
package cache

import (
	"os"
	"strings"
	"sync"
	"time"
)

// Disabled turns every cache into a pass-through (SHAREFS_CACHE=0).
var Disabled = os.Getenv("SHAREFS_CACHE") == "0"

// ProbeCache caches permission probe outcomes per path+mode with
// TTL-based expiration.
//
// Thread-safe: uses RWMutex for concurrent access.
type ProbeCache struct {
	mu      sync.RWMutex
	entries map[string]*probeEntry
	ttl     time.Duration
	maxSize int
}

type probeEntry struct {
	state   string
	expires time.Time
}

// NewProbeCache creates a probe cache.
// ttl: time-to-live for cached entries (use 0 for no expiration)
// maxSize: maximum number of entries (use 0 for unlimited)
func NewProbeCache(ttl time.Duration, maxSize int) *ProbeCache {
	return &ProbeCache{
		entries: make(map[string]*probeEntry, 64),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func key(path, mode string) string {
	return path + "\x00" + mode
}

// Get returns the cached probe state for path+mode, if fresh.
func (c *ProbeCache) Get(path, mode string) (string, bool) {
	if Disabled {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(path, mode)]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && time.Now().After(e.expires) {
		return "", false
	}
	return e.state, true
}

// Set stores a probe outcome for path+mode.
func (c *ProbeCache) Set(path, mode, state string) {
	if Disabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(path, mode)
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		if _, exists := c.entries[k]; !exists {
			return
		}
	}
	expires := time.Time{}
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}
	c.entries[k] = &probeEntry{state: state, expires: expires}
}

// Invalidate clears all entries.
func (c *ProbeCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) > 0 {
		c.entries = make(map[string]*probeEntry, 64)
	}
}

// InvalidatePath removes every mode cached for a path.
func (c *ProbeCache) InvalidatePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, path+"\x00") {
			delete(c.entries, k)
		}
	}
}

// InvalidatePrefix removes all paths under a directory.
func (c *ProbeCache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}
