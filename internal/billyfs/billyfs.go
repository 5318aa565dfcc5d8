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

// Package billyfs adapts a share's directory handle to the go-billy
// filesystem interface, so anything speaking billy can work against a
// remote SMB share. Symlinks, renames and temp files are not part of the
// bridge surface and report billy.ErrNotSupported.
package billyfs

import (
	"context"
	"io"
	"os"
	"path"
	"time"

	billy "github.com/go-git/go-billy/v5"

	"sharefs/internal/common"
	"sharefs/internal/fsa"
)

// ShareFS is a billy.Filesystem over one directory handle.
type ShareFS struct {
	root *fsa.DirectoryHandle
}

var _ billy.Filesystem = (*ShareFS)(nil)

// New wraps root as a billy filesystem.
func New(root *fsa.DirectoryHandle) *ShareFS {
	return &ShareFS{root: root}
}

// mapErr converts taxonomy errors to the os sentinels billy callers test
// against, as *os.PathError so os.IsNotExist and os.IsPermission see them.
func mapErr(name string, err error) error {
	if err == nil {
		return nil
	}
	switch common.KindOf(err) {
	case common.KindNotFound:
		return &os.PathError{Op: "sharefs", Path: name, Err: os.ErrNotExist}
	case common.KindPermissionDenied:
		return &os.PathError{Op: "sharefs", Path: name, Err: os.ErrPermission}
	}
	return err
}

// dirAt walks to the directory named by p, creating missing levels when
// create is set.
func (s *ShareFS) dirAt(ctx context.Context, p string, create bool) (*fsa.DirectoryHandle, error) {
	dir := s.root
	var opts *fsa.GetDirectoryOptions
	if create {
		opts = &fsa.GetDirectoryOptions{Create: true}
	}
	for _, seg := range common.SplitPath(p) {
		next, err := dir.GetDirectoryHandle(ctx, seg, opts)
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}

func (s *ShareFS) fileAt(ctx context.Context, p string, create bool) (*fsa.FileHandle, error) {
	dir, err := s.dirAt(ctx, common.ParentPath(p), false)
	if err != nil {
		return nil, err
	}
	var opts *fsa.GetFileOptions
	if create {
		opts = &fsa.GetFileOptions{Create: true}
	}
	return dir.GetFileHandle(ctx, common.BaseName(p), opts)
}

func (s *ShareFS) Create(filename string) (billy.File, error) {
	return s.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (s *ShareFS) Open(filename string) (billy.File, error) {
	return s.OpenFile(filename, os.O_RDONLY, 0)
}

func (s *ShareFS) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	ctx := context.Background()
	fh, err := s.fileAt(ctx, filename, flag&os.O_CREATE != 0)
	if err != nil {
		return nil, mapErr(filename, err)
	}

	f := &shareFile{name: filename, fh: fh}
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		stream, err := fh.CreateWritable(ctx, &fsa.CreateWritableOptions{
			KeepExistingData: flag&os.O_TRUNC == 0,
		})
		if err != nil {
			return nil, mapErr(filename, err)
		}
		f.stream = stream
		if flag&os.O_APPEND != 0 {
			f.pos = stream.Size()
		}
	}
	return f, nil
}

func (s *ShareFS) Stat(filename string) (os.FileInfo, error) {
	ctx := context.Background()
	h, err := s.handleAt(ctx, filename)
	if err != nil {
		return nil, mapErr(filename, err)
	}
	st, err := h.Entry().Stat(ctx)
	if err != nil {
		return nil, mapErr(filename, err)
	}
	return infoOf(common.BaseName(filename), st), nil
}

// handleAt resolves p as a file first, then as a directory.
func (s *ShareFS) handleAt(ctx context.Context, p string) (fsa.AnyHandle, error) {
	if common.NormalizePath(p) == "" {
		return s.root, nil
	}
	dir, err := s.dirAt(ctx, common.ParentPath(p), false)
	if err != nil {
		return nil, err
	}
	name := common.BaseName(p)
	if fh, err := dir.GetFileHandle(ctx, name, nil); err == nil {
		return fh, nil
	} else if common.KindOf(err) != common.KindNotFound && common.KindOf(err) != common.KindTypeMismatch {
		return nil, err
	}
	return dir.GetDirectoryHandle(ctx, name, nil)
}

func (s *ShareFS) Rename(oldpath, newpath string) error {
	return billy.ErrNotSupported
}

func (s *ShareFS) Remove(filename string) error {
	ctx := context.Background()
	dir, err := s.dirAt(ctx, common.ParentPath(filename), false)
	if err != nil {
		return mapErr(filename, err)
	}
	return mapErr(filename, dir.RemoveEntry(ctx, common.BaseName(filename), nil))
}

func (s *ShareFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (s *ShareFS) TempFile(dir, prefix string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

func (s *ShareFS) ReadDir(p string) ([]os.FileInfo, error) {
	ctx := context.Background()
	dir, err := s.dirAt(ctx, p, false)
	if err != nil {
		return nil, mapErr(p, err)
	}
	values, err := dir.Values(ctx)
	if err != nil {
		return nil, mapErr(p, err)
	}
	infos := make([]os.FileInfo, 0, len(values))
	for _, h := range values {
		st, err := h.Entry().Stat(ctx)
		if err != nil {
			if common.KindOf(err) == common.KindNotFound {
				// Raced with a concurrent removal.
				continue
			}
			return nil, err
		}
		infos = append(infos, infoOf(h.Entry().Name(), st))
	}
	return infos, nil
}

func (s *ShareFS) MkdirAll(filename string, _ os.FileMode) error {
	_, err := s.dirAt(context.Background(), filename, true)
	return mapErr(filename, err)
}

func (s *ShareFS) Lstat(filename string) (os.FileInfo, error) {
	return s.Stat(filename)
}

func (s *ShareFS) Symlink(target, link string) error {
	return billy.ErrNotSupported
}

func (s *ShareFS) Readlink(link string) (string, error) {
	return "", billy.ErrNotSupported
}

func (s *ShareFS) Chroot(p string) (billy.Filesystem, error) {
	dir, err := s.dirAt(context.Background(), p, false)
	if err != nil {
		return nil, mapErr(p, err)
	}
	return &ShareFS{root: dir}, nil
}

func (s *ShareFS) Root() string {
	return "/" + s.root.Path().String()
}

// fileInfo is the os.FileInfo view of a StatRecord.
type fileInfo struct {
	name  string
	size  int64
	mtime time.Time
	isDir bool
}

func infoOf(name string, st fsa.StatRecord) os.FileInfo {
	return &fileInfo{
		name:  name,
		size:  st.Size,
		mtime: time.UnixMilli(st.ModifiedTime),
		isDir: st.Kind == fsa.KindDirectory,
	}
}

func (fi *fileInfo) Name() string { return fi.name }
func (fi *fileInfo) Size() int64  { return fi.size }
func (fi *fileInfo) Mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0755
	}
	return 0644
}
func (fi *fileInfo) ModTime() time.Time { return fi.mtime }
func (fi *fileInfo) IsDir() bool        { return fi.isDir }
func (fi *fileInfo) Sys() any           { return nil }

// shareFile is one open billy file: reads go through ranged blob reads,
// writes through a writable stream kept for the file's lifetime.
type shareFile struct {
	name   string
	fh     *fsa.FileHandle
	stream *fsa.WritableStream
	pos    int64
	closed bool
}

var _ billy.File = (*shareFile)(nil)

func (f *shareFile) Name() string { return f.name }

func (f *shareFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *shareFile) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	ctx := context.Background()
	file, err := f.fh.GetFile(ctx)
	if err != nil {
		return 0, mapErr(f.name, err)
	}
	if off >= file.Size() {
		return 0, io.EOF
	}
	data, err := file.Slice(off, off+int64(len(p)), "").ArrayBuffer(ctx)
	if err != nil {
		return 0, mapErr(f.name, err)
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *shareFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if f.stream == nil {
		return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrPermission}
	}
	ctx := context.Background()
	if err := f.stream.Seek(ctx, f.pos); err != nil {
		return 0, err
	}
	if err := f.stream.Write(ctx, p); err != nil {
		return 0, err
	}
	f.pos += int64(len(p))
	return len(p), nil
}

func (f *shareFile) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		size := int64(0)
		if f.stream != nil {
			size = f.stream.Size()
		} else if file, err := f.fh.GetFile(context.Background()); err == nil {
			size = file.Size()
		}
		f.pos = size + offset
	default:
		return 0, os.ErrInvalid
	}
	if f.pos < 0 {
		f.pos = 0
	}
	return f.pos, nil
}

func (f *shareFile) Truncate(size int64) error {
	if f.stream == nil {
		return &os.PathError{Op: "truncate", Path: f.name, Err: os.ErrPermission}
	}
	return f.stream.Truncate(context.Background(), size)
}

func (f *shareFile) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	f.closed = true
	if f.stream != nil {
		return f.stream.Close(context.Background())
	}
	return nil
}

// Lock and Unlock are accepted but not enforced; the bridge does not
// expose SMB byte-range locks.
func (f *shareFile) Lock() error   { return nil }
func (f *shareFile) Unlock() error { return nil }
