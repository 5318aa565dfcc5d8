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

package backend

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"sharefs/internal/common"
)

// FixtureSentence is the exact contents of the fixture file "annar".
const FixtureSentence = "In order to make sure that this file is exactly 123 bytes in size, " +
	"I have written this text while watching its chars count."

type memFile struct {
	data     []byte
	created  time.Time
	modified time.Time
	readOnly bool
}

type memDir struct {
	created  time.Time
	modified time.Time
	readOnly bool
}

// Memory is an in-memory Backend with the semantics of a cooperative SMB
// server: offset writes past EOF zero-fill, truncate-up zero-fills, and
// directory enumeration delivers "." and ".." like a real server would.
type Memory struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]*memDir
}

// NewMemory returns an empty share.
func NewMemory() *Memory {
	now := time.Now()
	return &Memory{
		files: make(map[string]*memFile),
		dirs:  map[string]*memDir{"": {created: now, modified: now}},
	}
}

// NewMemoryFixture returns a share seeded with the reference fixture tree.
func NewMemoryFixture() *Memory {
	created := time.UnixMilli(1658159058718)
	modified := time.UnixMilli(1658159058723)
	m := &Memory{
		files: map[string]*memFile{
			"3":             {created: created, modified: modified},
			"annar":         {data: []byte(FixtureSentence), created: created, modified: modified},
			"first/comment": {created: created, modified: modified},
			"quatre/points": {created: created, modified: modified},
		},
		dirs: map[string]*memDir{
			"":       {created: created, modified: modified},
			"first":  {created: created, modified: modified},
			"quatre": {created: created, modified: modified},
		},
	}
	return m
}

// SetReadOnly marks an existing entry read-only, for permission probes.
func (m *Memory) SetReadOnly(path string, ro bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if f, ok := m.files[path]; ok {
		f.readOnly = ro
	}
	if d, ok := m.dirs[path]; ok {
		d.readOnly = ro
	}
}

// Bytes returns a copy of a file's contents, for tests.
func (m *Memory) Bytes(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[common.NormalizePath(path)]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out, true
}

func notExist(path string) error {
	return fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func (m *Memory) Stat(path string) (Stat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = common.NormalizePath(path)
	if f, ok := m.files[path]; ok {
		return statOfFile(f), nil
	}
	if d, ok := m.dirs[path]; ok {
		return statOfDir(d), nil
	}
	return Stat{}, notExist(path)
}

func statOfFile(f *memFile) Stat {
	return Stat{
		Size:         int64(len(f.data)),
		CreationTime: f.created,
		ModifiedTime: f.modified,
		AccessedTime: f.modified,
		Kind:         KindFile,
	}
}

func statOfDir(d *memDir) Stat {
	return Stat{
		CreationTime: d.created,
		ModifiedTime: d.modified,
		AccessedTime: d.modified,
		Kind:         KindDirectory,
	}
}

func (m *Memory) OpenDir(path string) (Dir, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path = common.NormalizePath(path)
	d, ok := m.dirs[path]
	if !ok {
		if _, isFile := m.files[path]; isFile {
			return nil, fmt.Errorf("%s: %w", path, ErrNotDirectory)
		}
		return nil, notExist(path)
	}

	entries := []DirEntry{
		{Name: ".", Kind: KindDirectory, ModifiedTime: d.modified},
		{Name: "..", Kind: KindDirectory, ModifiedTime: d.modified},
	}
	for name, f := range m.files {
		if common.ParentPath(name) == path {
			entries = append(entries, DirEntry{
				Name:         common.BaseName(name),
				Kind:         KindFile,
				Size:         int64(len(f.data)),
				ModifiedTime: f.modified,
			})
		}
	}
	for name, sub := range m.dirs {
		if name != "" && common.ParentPath(name) == path && name != path {
			entries = append(entries, DirEntry{
				Name:         common.BaseName(name),
				Kind:         KindDirectory,
				ModifiedTime: sub.modified,
			})
		}
	}
	sort.Slice(entries[2:], func(i, j int) bool { return entries[i+2].Name < entries[j+2].Name })
	return &memCursor{entries: entries}, nil
}

func (m *Memory) Open(path string, mode OpenMode) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if d, ok := m.dirs[path]; ok {
		if mode != OpenRead && d.readOnly {
			return nil, fmt.Errorf("%s: %w", path, os.ErrPermission)
		}
		return nil, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	f, ok := m.files[path]
	if !ok {
		return nil, notExist(path)
	}
	if mode != OpenRead && f.readOnly {
		return nil, fmt.Errorf("%s: %w", path, os.ErrPermission)
	}
	if mode == OpenWriteTruncate {
		f.data = nil
		f.modified = time.Now()
	}
	return &memHandle{m: m, path: path, writable: mode != OpenRead}, nil
}

func (m *Memory) Create(path string) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if _, ok := m.dirs[path]; ok {
		return nil, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	parent := common.ParentPath(path)
	pd, ok := m.dirs[parent]
	if !ok {
		return nil, notExist(parent)
	}
	if pd.readOnly {
		return nil, fmt.Errorf("%s: %w", path, os.ErrPermission)
	}
	now := time.Now()
	m.files[path] = &memFile{created: now, modified: now}
	pd.modified = now
	return &memHandle{m: m, path: path, writable: true}, nil
}

func (m *Memory) Mkdir(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if _, ok := m.dirs[path]; ok {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	if _, ok := m.files[path]; ok {
		return fmt.Errorf("%s: %w", path, os.ErrExist)
	}
	parent := common.ParentPath(path)
	pd, ok := m.dirs[parent]
	if !ok {
		return notExist(parent)
	}
	if pd.readOnly {
		return fmt.Errorf("%s: %w", path, os.ErrPermission)
	}
	now := time.Now()
	m.dirs[path] = &memDir{created: now, modified: now}
	pd.modified = now
	return nil
}

func (m *Memory) Rmdir(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if _, ok := m.dirs[path]; !ok {
		if _, isFile := m.files[path]; isFile {
			return fmt.Errorf("%s: %w", path, ErrNotDirectory)
		}
		return notExist(path)
	}
	if path == "" {
		return fmt.Errorf("%s: %w", path, os.ErrPermission)
	}
	for name := range m.files {
		if common.ParentPath(name) == path {
			return fmt.Errorf("%s: %w", path, ErrNotEmpty)
		}
	}
	for name := range m.dirs {
		if name != path && common.ParentPath(name) == path {
			return fmt.Errorf("%s: %w", path, ErrNotEmpty)
		}
	}
	delete(m.dirs, path)
	m.touchParent(path)
	return nil
}

func (m *Memory) Unlink(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	if _, ok := m.dirs[path]; ok {
		return fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}
	if _, ok := m.files[path]; !ok {
		return notExist(path)
	}
	delete(m.files, path)
	m.touchParent(path)
	return nil
}

func (m *Memory) Truncate(path string, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = common.NormalizePath(path)
	f, ok := m.files[path]
	if !ok {
		return notExist(path)
	}
	f.data = resize(f.data, size)
	f.modified = time.Now()
	return nil
}

func (m *Memory) MaxReadSize() int  { return DefaultMaxIOSize }
func (m *Memory) MaxWriteSize() int { return DefaultMaxIOSize }

func (m *Memory) Close() error { return nil }

// touchParent bumps the parent directory's mtime; callers hold m.mu.
func (m *Memory) touchParent(path string) {
	if pd, ok := m.dirs[common.ParentPath(path)]; ok {
		pd.modified = time.Now()
	}
}

// resize grows with zero bytes or shrinks to exactly size.
func resize(data []byte, size int64) []byte {
	n := int(size)
	if n <= len(data) {
		return data[:n]
	}
	grown := make([]byte, n)
	copy(grown, data)
	return grown
}

type memCursor struct {
	entries []DirEntry
	index   int
	closed  bool
}

func (c *memCursor) Next() (DirEntry, error) {
	if c.closed || c.index >= len(c.entries) {
		return DirEntry{}, io.EOF
	}
	e := c.entries[c.index]
	c.index++
	return e, nil
}

func (c *memCursor) Close() error {
	c.closed = true
	return nil
}

type memHandle struct {
	m        *Memory
	path     string
	writable bool
	closed   bool
}

func (h *memHandle) Stat() (Stat, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	f, ok := h.m.files[h.path]
	if !ok {
		return Stat{}, notExist(h.path)
	}
	return statOfFile(f), nil
}

func (h *memHandle) ReadAt(p []byte, off int64) (int, error) {
	h.m.mu.RLock()
	defer h.m.mu.RUnlock()
	if h.closed {
		return 0, os.ErrClosed
	}
	f, ok := h.m.files[h.path]
	if !ok {
		return 0, notExist(h.path)
	}
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *memHandle) WriteAt(p []byte, off int64) (int, error) {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if h.closed {
		return 0, os.ErrClosed
	}
	if !h.writable {
		return 0, fmt.Errorf("%s: %w", h.path, os.ErrPermission)
	}
	f, ok := h.m.files[h.path]
	if !ok {
		return 0, notExist(h.path)
	}
	if gap := off - int64(len(f.data)); gap > 0 {
		f.data = resize(f.data, off)
	}
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		f.data = resize(f.data, end)
	}
	copy(f.data[off:], p)
	f.modified = time.Now()
	return len(p), nil
}

func (h *memHandle) Truncate(size int64) error {
	if !h.writable {
		return fmt.Errorf("%s: %w", h.path, os.ErrPermission)
	}
	return h.m.Truncate(h.path, size)
}

func (h *memHandle) Close() error {
	h.closed = true
	return nil
}
