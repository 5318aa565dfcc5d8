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

// Package fsa exposes a remote SMB share through the File System Access
// model: directory and file handles, writable streams, lazy iteration,
// permission queries and change watching. Handles are descriptive values;
// every server round trip runs on the context's driver goroutine and is
// awaited through a future.
package fsa

import (
	"context"
	"time"

	"sharefs/internal/backend"
	"sharefs/internal/cache"
	"sharefs/internal/common"
	"sharefs/internal/driver"
	"sharefs/internal/pool"
	"sharefs/internal/smburl"
)

// defaultWatchInterval paces the watcher's poll-and-diff loop.
const defaultWatchInterval = 500 * time.Millisecond

// probeTTL is how long a permission probe outcome stays fresh.
const probeTTL = 30 * time.Second

// probeCacheMaxEntries caps gate memory; shares rarely have more
// distinct probed paths.
const probeCacheMaxEntries = 4096

// FS is one mounted share anchor. All handles derived from it share one
// endpoint and one pooled context.
type FS struct {
	pool          *pool.Pool
	endpoint      *smburl.Endpoint
	rootPath      common.PathRef
	watchInterval time.Duration
	probes        *cache.ProbeCache
}

type config struct {
	dial          backend.DialFunc
	idleTTL       time.Duration
	idleTTLSet    bool
	watchInterval time.Duration
}

// Option configures Connect.
type Option func(*config)

// WithDialer overrides how backends are connected; tests inject the
// in-memory backend here.
func WithDialer(dial backend.DialFunc) Option {
	return func(c *config) { c.dial = dial }
}

// WithIdleTTL overrides how long an unreferenced context stays warm.
func WithIdleTTL(d time.Duration) Option {
	return func(c *config) { c.idleTTL = d; c.idleTTLSet = true }
}

// WithWatchInterval overrides the watcher polling interval.
func WithWatchInterval(d time.Duration) Option {
	return func(c *config) { c.watchInterval = d }
}

// Connect parses the URL, establishes the share context and returns the
// mounted filesystem. Connectivity and auth errors surface here rather
// than on the first operation.
func Connect(ctx context.Context, rawURL string, opts ...Option) (*FS, error) {
	cfg := config{dial: backend.Dial, watchInterval: defaultWatchInterval}
	for _, opt := range opts {
		opt(&cfg)
	}

	ep, anchor, err := smburl.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	poolOpts := []pool.Option{}
	if cfg.idleTTLSet {
		poolOpts = append(poolOpts, pool.WithIdleTTL(cfg.idleTTL))
	}
	fs := &FS{
		pool:          pool.New(cfg.dial, poolOpts...),
		endpoint:      ep,
		rootPath:      anchor,
		watchInterval: cfg.watchInterval,
		probes:        cache.NewProbeCache(probeTTL, probeCacheMaxEntries),
	}

	c, err := fs.pool.Acquire(ctx, ep)
	if err != nil {
		fs.pool.Close()
		return nil, err
	}
	fs.pool.Release(c)
	return fs, nil
}

// Root returns the directory handle anchored at the URL's path (the
// share root when the URL has no path).
func (fs *FS) Root() *DirectoryHandle {
	return &DirectoryHandle{Handle{fs: fs, path: fs.rootPath, kind: KindDirectory}}
}

// Close disposes every pooled context. Handles remain valid values but
// all further operations fail.
func (fs *FS) Close() {
	fs.pool.Close()
}

// acquire pins the share context for a multi-operation session (streams,
// iterators, watchers). Single operations go through do.
func (fs *FS) acquire(ctx context.Context) (*pool.Context, error) {
	return fs.pool.Acquire(ctx, fs.endpoint)
}

// do runs one backend operation on the driver and awaits it.
func do[T any](ctx context.Context, fs *FS, label string, fn func(backend.Backend) (T, error)) (T, error) {
	c, err := fs.acquire(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer fs.pool.Release(c)
	return driver.Do(ctx, c.Driver(), label, fn)
}
