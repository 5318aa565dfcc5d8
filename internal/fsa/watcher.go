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

package fsa

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	ignore "github.com/sabhiram/go-gitignore"
	log "github.com/sirupsen/logrus"

	"sharefs/internal/backend"
	"sharefs/internal/common"
	"sharefs/internal/driver"
	"sharefs/internal/pool"
)

// WatchAction classifies one change event.
type WatchAction string

const (
	ActionCreate WatchAction = "create"
	ActionWrite  WatchAction = "write"
	ActionRemove WatchAction = "remove"
)

// WatchEvent is one observed change. Path is relative to the watched
// directory with "/" separators.
type WatchEvent struct {
	Path   string
	Action WatchAction
}

// WatchCallback receives events in order. Returning an error terminates
// the subscription.
type WatchCallback func(WatchEvent) error

// WatchOptions configures Watch.
type WatchOptions struct {
	// Interval overrides the polling cadence.
	Interval time.Duration
	// Ignore drops events whose paths match these gitignore-style patterns.
	Ignore []string
}

// WatchSubscription is a running change watch. Cancel stops emission;
// Wait blocks until the worker has drained, including the last in-flight
// callback.
type WatchSubscription struct {
	ID uuid.UUID

	cancel     chan struct{}
	done       chan struct{}
	cancelOnce sync.Once
}

// Cancel stops the subscription and releases its resources.
func (s *WatchSubscription) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// Wait blocks until the worker has exited.
func (s *WatchSubscription) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return common.WrapError(common.KindCancelled, "wait cancelled", ctx.Err())
	}
}

// watchMeta is one snapshot row.
type watchMeta struct {
	kind     backend.EntryKind
	size     int64
	modified time.Time
}

// Watch polls the subtree under d and diffs successive snapshots into
// create/write/remove events. Write events are inherently lossy: zero or
// more may be observed between a create and a remove.
func (d *DirectoryHandle) Watch(ctx context.Context, cb WatchCallback, opts *WatchOptions) (*WatchSubscription, error) {
	interval := d.fs.watchInterval
	var matcher *ignore.GitIgnore
	if opts != nil {
		if opts.Interval > 0 {
			interval = opts.Interval
		}
		if len(opts.Ignore) > 0 {
			matcher = ignore.CompileIgnoreLines(opts.Ignore...)
		}
	}

	pctx, err := d.fs.acquire(ctx)
	if err != nil {
		return nil, err
	}
	prev, err := snapshot(ctx, pctx, d.path)
	if err != nil {
		d.fs.pool.Release(pctx)
		return nil, d.notFound(err)
	}

	sub := &WatchSubscription{
		ID:     uuid.New(),
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.watchLoop(pctx, sub, cb, matcher, prev, interval)
	return sub, nil
}

func (d *DirectoryHandle) watchLoop(pctx *pool.Context, sub *WatchSubscription, cb WatchCallback, matcher *ignore.GitIgnore, prev map[string]watchMeta, interval time.Duration) {
	defer close(sub.done)
	defer d.fs.pool.Release(pctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.cancel:
			return
		case <-ticker.C:
		}

		next, err := snapshot(context.Background(), pctx, d.path)
		if err != nil {
			log.Debugf("[Watch] %s: snapshot failed: %v", sub.ID, err)
			switch common.KindOf(err) {
			case common.KindNotFound, common.KindInvalidState, common.KindCancelled:
				// Watched directory gone, or the context was torn down.
				return
			}
			continue
		}

		for _, ev := range diffSnapshots(prev, next) {
			if matcher != nil && matcher.MatchesPath(ev.Path) {
				continue
			}
			select {
			case <-sub.cancel:
				return
			default:
			}
			if err := cb(ev); err != nil {
				log.Debugf("[Watch] %s: callback error, stopping: %v", sub.ID, err)
				return
			}
		}
		prev = next
	}
}

// snapshot walks the subtree breadth-first; each directory listing is
// one driver operation.
func snapshot(ctx context.Context, pctx *pool.Context, root common.PathRef) (map[string]watchMeta, error) {
	out := make(map[string]watchMeta)
	queue := []common.PathRef{{}}
	for len(queue) > 0 {
		rel := queue[0]
		queue = queue[1:]

		dir := root
		for _, seg := range rel {
			dir = dir.Child(seg)
		}
		target := dir.String()
		entries, err := driver.Do(ctx, pctx.Driver(), "watch-list "+target, func(b backend.Backend) ([]backend.DirEntry, error) {
			return listDir(b, target)
		})
		if err != nil {
			if !rel.IsRoot() && common.KindOf(err) == common.KindNotFound {
				// Raced with a removal below the root; the diff will report it.
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			childRel := rel.Child(e.Name)
			out[childRel.String()] = watchMeta{kind: e.Kind, size: e.Size, modified: e.ModifiedTime}
			if e.Kind == backend.KindDirectory {
				queue = append(queue, childRel)
			}
		}
	}
	return out, nil
}

// diffSnapshots orders events deterministically by path; one event per
// path per round, except a kind change, which emits remove then create.
func diffSnapshots(prev, next map[string]watchMeta) []WatchEvent {
	paths := make([]string, 0, len(prev)+len(next))
	for p := range next {
		paths = append(paths, p)
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	var events []WatchEvent
	for _, p := range paths {
		before, had := prev[p]
		after, has := next[p]
		switch {
		case !had && has:
			events = append(events, WatchEvent{Path: p, Action: ActionCreate})
		case had && !has:
			events = append(events, WatchEvent{Path: p, Action: ActionRemove})
		case before.kind != after.kind:
			events = append(events, WatchEvent{Path: p, Action: ActionRemove},
				WatchEvent{Path: p, Action: ActionCreate})
		case before.size != after.size || !before.modified.Equal(after.modified):
			events = append(events, WatchEvent{Path: p, Action: ActionWrite})
		}
	}
	return events
}
