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

// Package pool maps endpoints to live SMB contexts. Contexts are created
// on first acquire, shared by refcount, kept warm for an idle TTL after
// the last release, and then disposed on their own driver.
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"sharefs/internal/backend"
	"sharefs/internal/common"
	"sharefs/internal/driver"
	"sharefs/internal/smburl"
)

// DefaultIdleTTL is how long a context with no holders stays warm.
const DefaultIdleTTL = 30 * time.Second

// Context is a live client attached to an endpoint.
type Context struct {
	Endpoint *smburl.Endpoint

	key      string
	driver   *driver.Driver
	refs     int
	lastUsed time.Time
}

// Driver returns the goroutine that owns this context's backend.
func (c *Context) Driver() *driver.Driver {
	return c.driver
}

// entry tracks one endpoint slot; ready closes once ctx or err is set,
// so concurrent acquirers share a single connect attempt.
type entry struct {
	ready chan struct{}
	ctx   *Context
	err   error
}

// Pool owns every context keyed by endpoint identity.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry
	dial    backend.DialFunc
	idleTTL time.Duration
	closed  bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithIdleTTL overrides the idle teardown threshold. Zero disposes a
// context as soon as its last holder releases it.
func WithIdleTTL(d time.Duration) Option {
	return func(p *Pool) { p.idleTTL = d }
}

// New builds a pool dialing backends with dial.
func New(dial backend.DialFunc, opts ...Option) *Pool {
	p := &Pool{
		entries: make(map[string]*entry),
		dial:    dial,
		idleTTL: DefaultIdleTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns a live context for ep, connecting if none exists.
// A failed connect is surfaced as KindConnectFailed and never cached.
func (p *Pool) Acquire(ctx context.Context, ep *smburl.Endpoint) (*Context, error) {
	key := ep.Key()
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, common.NewError(common.KindInvalidState, "pool closed")
		}
		e, ok := p.entries[key]
		if !ok {
			e = &entry{ready: make(chan struct{})}
			p.entries[key] = e
			p.mu.Unlock()
			return p.connect(ctx, ep, key, e)
		}
		p.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return nil, common.WrapError(common.KindCancelled, "acquire cancelled", ctx.Err())
		}
		if e.err != nil {
			// The creator failed and removed the entry; retry with a fresh slot.
			continue
		}

		p.mu.Lock()
		if p.entries[key] != e {
			// Reaped between ready and here; start over.
			p.mu.Unlock()
			continue
		}
		e.ctx.refs++
		e.ctx.lastUsed = time.Now()
		p.mu.Unlock()
		return e.ctx, nil
	}
}

func (p *Pool) connect(ctx context.Context, ep *smburl.Endpoint, key string, e *entry) (*Context, error) {
	b, err := p.dial(ctx, ep)
	if err != nil {
		p.mu.Lock()
		delete(p.entries, key)
		p.mu.Unlock()
		e.err = common.WrapError(common.KindConnectFailed,
			fmt.Sprintf("connect to %s failed: %v", ep.Redacted(), err), err)
		close(e.ready)
		return nil, e.err
	}
	c := &Context{
		Endpoint: ep,
		key:      key,
		driver:   driver.New(b),
		refs:     1,
		lastUsed: time.Now(),
	}
	p.mu.Lock()
	e.ctx = c
	p.mu.Unlock()
	close(e.ready)
	log.Debugf("[Pool] connected %s", ep.Redacted())
	return c, nil
}

// Release drops one reference. When the count reaches zero the context
// stays warm for the idle TTL and is then disposed.
func (p *Pool) Release(c *Context) {
	p.mu.Lock()
	c.refs--
	c.lastUsed = time.Now()
	idle := c.refs == 0
	p.mu.Unlock()
	if !idle {
		return
	}
	if p.idleTTL <= 0 {
		p.reap(c)
		return
	}
	time.AfterFunc(p.idleTTL, func() { p.reap(c) })
}

// reap disposes c if it is still registered, unreferenced and idle. A
// context re-released since the timer was set gets the remainder of its
// fresh TTL.
func (p *Pool) reap(c *Context) {
	p.mu.Lock()
	e, ok := p.entries[c.key]
	if !ok || e.ctx != c || c.refs > 0 {
		p.mu.Unlock()
		return
	}
	if remaining := p.idleTTL - time.Since(c.lastUsed); p.idleTTL > 0 && remaining > 0 {
		p.mu.Unlock()
		time.AfterFunc(remaining, func() { p.reap(c) })
		return
	}
	delete(p.entries, c.key)
	p.mu.Unlock()
	log.Debugf("[Pool] disposing idle context %s", c.Endpoint.Redacted())
	c.driver.Close()
}

// Len reports how many contexts are registered, connected or connecting.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close tears down every context and rejects further acquires.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	entries := p.entries
	p.entries = nil
	p.mu.Unlock()

	for _, e := range entries {
		<-e.ready
		if e.ctx != nil {
			e.ctx.driver.Close()
		}
	}
}
