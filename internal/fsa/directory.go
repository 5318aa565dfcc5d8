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
	"errors"
	"io"
	"sync"

	log "github.com/sirupsen/logrus"

	"sharefs/internal/backend"
	"sharefs/internal/common"
	"sharefs/internal/driver"
	"sharefs/internal/pool"
)

// DirectoryHandle names a directory and is the anchor for lookups,
// enumeration, removal and watching.
type DirectoryHandle struct {
	Handle
}

// FileHandle names a file.
type FileHandle struct {
	Handle
}

// GetDirectoryOptions configures GetDirectoryHandle.
type GetDirectoryOptions struct {
	Create bool
}

// GetFileOptions configures GetFileHandle.
type GetFileOptions struct {
	Create bool
}

// RemoveOptions configures RemoveEntry.
type RemoveOptions struct {
	Recursive bool
}

// GetDirectoryHandle resolves the named child as a directory. With
// Create, a missing child is created with mkdir.
func (d *DirectoryHandle) GetDirectoryHandle(ctx context.Context, name string, opts *GetDirectoryOptions) (*DirectoryHandle, error) {
	if err := common.ValidateName(name); err != nil {
		return nil, err
	}
	child := d.path.Child(name)
	target := child.String()

	st, err := do(ctx, d.fs, "stat "+target, func(b backend.Backend) (backend.Stat, error) {
		return b.Stat(target)
	})
	switch {
	case err == nil:
		if st.Kind != backend.KindDirectory {
			return nil, common.ErrTypeMismatch()
		}
		return &DirectoryHandle{Handle{fs: d.fs, path: child, kind: KindDirectory}}, nil
	case common.KindOf(err) == common.KindNotFound:
		if opts == nil || !opts.Create {
			return nil, common.ErrDirectoryNotFound(name)
		}
	default:
		return nil, err
	}

	_, err = do(ctx, d.fs, "mkdir "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, b.Mkdir(target)
	})
	if err != nil {
		return nil, err
	}
	d.fs.probes.InvalidatePath(d.path.String())
	return &DirectoryHandle{Handle{fs: d.fs, path: child, kind: KindDirectory}}, nil
}

// GetFileHandle resolves the named child as a file. With Create, a
// missing child is created as a zero-length file.
func (d *DirectoryHandle) GetFileHandle(ctx context.Context, name string, opts *GetFileOptions) (*FileHandle, error) {
	if err := common.ValidateName(name); err != nil {
		return nil, err
	}
	child := d.path.Child(name)
	target := child.String()

	st, err := do(ctx, d.fs, "stat "+target, func(b backend.Backend) (backend.Stat, error) {
		return b.Stat(target)
	})
	switch {
	case err == nil:
		if st.Kind != backend.KindFile {
			return nil, common.ErrTypeMismatch()
		}
		return &FileHandle{Handle{fs: d.fs, path: child, kind: KindFile}}, nil
	case common.KindOf(err) == common.KindNotFound:
		if opts == nil || !opts.Create {
			return nil, common.ErrFileNotFound(name)
		}
	default:
		return nil, err
	}

	_, err = do(ctx, d.fs, "create "+target, func(b backend.Backend) (struct{}, error) {
		f, err := b.Create(target)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, f.Close()
	})
	if err != nil {
		return nil, err
	}
	d.fs.probes.InvalidatePath(d.path.String())
	return &FileHandle{Handle{fs: d.fs, path: child, kind: KindFile}}, nil
}

// RemoveEntry deletes the named child: unlink for files, rmdir for
// directories. With Recursive, a directory's contents are removed
// depth-first; without it a populated directory fails.
func (d *DirectoryHandle) RemoveEntry(ctx context.Context, name string, opts *RemoveOptions) error {
	if err := common.ValidateName(name); err != nil {
		return err
	}
	child := d.path.Child(name)
	target := child.String()

	st, err := do(ctx, d.fs, "stat "+target, func(b backend.Backend) (backend.Stat, error) {
		return b.Stat(target)
	})
	if err != nil {
		if common.KindOf(err) == common.KindNotFound {
			return common.ErrEntryNotFound(name)
		}
		return err
	}

	if st.Kind == backend.KindFile {
		err = d.unlink(ctx, target)
	} else if opts != nil && opts.Recursive {
		err = d.removeTree(ctx, child)
	} else {
		err = d.rmdir(ctx, target)
		if common.KindOf(err) == common.KindNotEmpty {
			return common.ErrDirectoryNotEmpty(name)
		}
	}
	if err != nil {
		return err
	}
	d.fs.probes.InvalidatePrefix(target)
	d.fs.probes.InvalidatePath(target)
	return nil
}

func (d *DirectoryHandle) unlink(ctx context.Context, target string) error {
	_, err := do(ctx, d.fs, "unlink "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, b.Unlink(target)
	})
	return err
}

func (d *DirectoryHandle) rmdir(ctx context.Context, target string) error {
	_, err := do(ctx, d.fs, "rmdir "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, b.Rmdir(target)
	})
	return err
}

// removeTree deletes everything under dir, then dir itself. Each step is
// its own driver operation so concurrent callers interleave fairly.
func (d *DirectoryHandle) removeTree(ctx context.Context, dir common.PathRef) error {
	target := dir.String()
	entries, err := do(ctx, d.fs, "list "+target, func(b backend.Backend) ([]backend.DirEntry, error) {
		return listDir(b, target)
	})
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := dir.Child(e.Name)
		if e.Kind == backend.KindDirectory {
			if err := d.removeTree(ctx, child); err != nil {
				return err
			}
		} else if err := d.unlink(ctx, child.String()); err != nil {
			return err
		}
	}
	return d.rmdir(ctx, target)
}

// listDir collects a directory's entries in one driver operation,
// filtering "." and "..". Runs on the driver goroutine.
func listDir(b backend.Backend, path string) ([]backend.DirEntry, error) {
	cur, err := b.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	var out []backend.DirEntry
	for {
		e, err := cur.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		out = append(out, e)
	}
}

// Resolve returns the path of possibleDescendant relative to d as a
// segment list, or nil when it is not a descendant (different endpoint
// or not under d). Resolving d against itself yields an empty list.
func (d *DirectoryHandle) Resolve(possibleDescendant AnyHandle) []string {
	if possibleDescendant == nil {
		return nil
	}
	o := possibleDescendant.Entry()
	if !d.fs.endpoint.Equal(o.fs.endpoint) {
		return nil
	}
	rel, ok := o.path.RelativeTo(d.path)
	if !ok {
		return nil
	}
	return []string(rel)
}

// DirEntryItem is one enumeration result: the child's name and handle.
type DirEntryItem struct {
	Name   string
	Handle AnyHandle
}

// AsDirectory returns the entry as a directory handle, if it is one.
func (e *DirEntryItem) AsDirectory() (*DirectoryHandle, bool) {
	d, ok := e.Handle.(*DirectoryHandle)
	return d, ok
}

// AsFile returns the entry as a file handle, if it is one.
func (e *DirEntryItem) AsFile() (*FileHandle, bool) {
	f, ok := e.Handle.(*FileHandle)
	return f, ok
}

// DirIterator enumerates a directory lazily: each Next issues one cursor
// step on the driver. Iteration is not a snapshot; concurrent mutations
// may appear or be missed. The iterator closes itself on completion or
// error; Close is idempotent and releases the pinned context.
type DirIterator struct {
	fs        *FS
	dir       common.PathRef
	pctx      *pool.Context
	cur       backend.Dir
	closeOnce sync.Once
	done      bool
}

// Entries opens an enumeration cursor over d.
func (d *DirectoryHandle) Entries(ctx context.Context) (*DirIterator, error) {
	pctx, err := d.fs.acquire(ctx)
	if err != nil {
		return nil, err
	}
	target := d.path.String()
	cur, err := driver.Do(ctx, pctx.Driver(), "opendir "+target, func(b backend.Backend) (backend.Dir, error) {
		return b.OpenDir(target)
	})
	if err != nil {
		d.fs.pool.Release(pctx)
		return nil, d.notFound(err)
	}
	return &DirIterator{fs: d.fs, dir: d.path, pctx: pctx, cur: cur}, nil
}

// Next returns the next entry, or (nil, nil) when the enumeration is
// complete. An error terminates the iteration as its final observation.
func (it *DirIterator) Next(ctx context.Context) (*DirEntryItem, error) {
	if it.done {
		return nil, nil
	}
	for {
		e, err := driver.Do(ctx, it.pctx.Driver(), "readdir "+it.dir.String(), func(b backend.Backend) (backend.DirEntry, error) {
			return it.cur.Next()
		})
		if err != nil {
			it.Close()
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, err
		}
		if e.Name == "." || e.Name == ".." {
			continue
		}
		child := it.dir.Child(e.Name)
		var h AnyHandle
		if e.Kind == backend.KindDirectory {
			h = &DirectoryHandle{Handle{fs: it.fs, path: child, kind: KindDirectory}}
		} else {
			h = &FileHandle{Handle{fs: it.fs, path: child, kind: KindFile}}
		}
		return &DirEntryItem{Name: e.Name, Handle: h}, nil
	}
}

// Close ends the enumeration early and releases the cursor.
func (it *DirIterator) Close() {
	it.closeOnce.Do(func() {
		it.done = true
		cur := it.cur
		if _, err := driver.Do(context.Background(), it.pctx.Driver(), "closedir "+it.dir.String(), func(b backend.Backend) (struct{}, error) {
			return struct{}{}, cur.Close()
		}); err != nil {
			log.Debugf("[FSA] closedir %s: %v", it.dir, err)
		}
		it.fs.pool.Release(it.pctx)
	})
}

// Keys collects every child name.
func (d *DirectoryHandle) Keys(ctx context.Context) ([]string, error) {
	it, err := d.Entries(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var names []string
	for {
		e, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return names, nil
		}
		names = append(names, e.Name)
	}
}

// Values collects every child handle.
func (d *DirectoryHandle) Values(ctx context.Context) ([]AnyHandle, error) {
	it, err := d.Entries(ctx)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var handles []AnyHandle
	for {
		e, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return handles, nil
		}
		handles = append(handles, e.Handle)
	}
}
