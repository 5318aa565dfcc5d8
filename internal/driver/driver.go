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

// Package driver owns one backend per context and pumps its operations
// from a single goroutine. Callers submit closures and await futures;
// submissions form a FIFO per context, and nothing but the driver
// goroutine ever touches the backend.
package driver

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"sharefs/internal/backend"
	"sharefs/internal/common"
)

// queueDepth is how many submissions may be pending before Submit blocks.
const queueDepth = 128

type outcome struct {
	value any
	err   error
}

type request struct {
	id      string
	label   string
	run     func(backend.Backend) (any, error)
	result  chan outcome
	dropped atomic.Bool
}

// Driver pumps a command queue against one backend.
type Driver struct {
	b     backend.Backend
	queue chan *request
	quit  chan struct{}
	done  chan struct{}
}

// New starts the driver goroutine for b. The driver takes ownership of
// the backend; Close tears both down.
func New(b backend.Backend) *Driver {
	d := &Driver{
		b:     b,
		queue: make(chan *request, queueDepth),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Driver) loop() {
	defer close(d.done)
	for {
		select {
		case req := <-d.queue:
			d.serve(req)
		case <-d.quit:
			// Drain whatever was queued before the shutdown signal.
			for {
				select {
				case req := <-d.queue:
					d.fail(req, common.NewError(common.KindInvalidState, "driver closed"))
				default:
					if err := d.b.Close(); err != nil {
						log.Debugf("[Driver] backend close: %v", err)
					}
					return
				}
			}
		}
	}
}

func (d *Driver) serve(req *request) {
	value, err := req.run(d.b)
	if err != nil {
		err = Translate(err)
	}
	if req.dropped.Load() {
		// The future was abandoned; record and discard the completion.
		log.Debugf("[Driver] %s %s: discarding completion after cancel (err=%v)", req.id, req.label, err)
		return
	}
	req.result <- outcome{value: value, err: err}
}

func (d *Driver) fail(req *request, err error) {
	if req.dropped.Load() {
		return
	}
	req.result <- outcome{err: err}
}

// Close stops the loop, fails queued submissions and closes the backend.
// It blocks until the driver goroutine has exited.
func (d *Driver) Close() {
	close(d.quit)
	<-d.done
}

// Future is a pending completion for one submitted operation.
type Future[T any] struct {
	d   *Driver
	req *request
}

// Submit enqueues fn for execution on the driver goroutine and returns
// its future. fn runs at most once, in submission order; a submission that
// reaches a closed driver, or is still queued when it closes, fails with
// KindInvalidState without running.
func Submit[T any](d *Driver, label string, fn func(backend.Backend) (T, error)) *Future[T] {
	req := &request{
		id:     uuid.NewString(),
		label:  label,
		result: make(chan outcome, 1),
		run: func(b backend.Backend) (any, error) {
			return fn(b)
		},
	}
	select {
	case d.queue <- req:
	case <-d.done:
		req.result <- outcome{err: common.NewError(common.KindInvalidState, "driver closed")}
	}
	return &Future[T]{d: d, req: req}
}

// Await blocks until the operation completes or ctx is done. Abandoning a
// future leaves a tombstone: the driver still executes the operation and
// discards its result.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	var zero T
	select {
	case out := <-f.req.result:
		return unpack[T](out)
	case <-f.d.done:
		// The driver wound down; a completion may still have raced in.
		select {
		case out := <-f.req.result:
			return unpack[T](out)
		default:
			return zero, common.NewError(common.KindInvalidState, "driver closed")
		}
	case <-ctx.Done():
		f.req.dropped.Store(true)
		return zero, common.WrapError(common.KindCancelled, "operation cancelled", ctx.Err())
	}
}

func unpack[T any](out outcome) (T, error) {
	var zero T
	if out.err != nil {
		return zero, out.err
	}
	if out.value == nil {
		return zero, nil
	}
	return out.value.(T), nil
}

// Do is the broker veneer: submit and await in one step.
func Do[T any](ctx context.Context, d *Driver, label string, fn func(backend.Backend) (T, error)) (T, error) {
	return Submit(d, label, fn).Await(ctx)
}
