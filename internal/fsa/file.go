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

// Blob is a byte view over a file: an offset window plus a content type.
// Reads go to the server in chunks of at most the backend's max I/O size.
type Blob struct {
	fs       *FS
	path     common.PathRef
	start    int64
	size     int64
	mimeType string
}

// File is a Blob carrying the entry's name and last-modified time.
type File struct {
	Blob
	Name         string
	LastModified int64
}

// GetFile stats the entry and returns its File record. The content type
// is inferred from the extension table only; unknown extensions yield
// the literal string "unknown".
func (f *FileHandle) GetFile(ctx context.Context) (*File, error) {
	st, err := f.Stat(ctx)
	if err != nil {
		return nil, err
	}
	return &File{
		Blob: Blob{
			fs:       f.fs,
			path:     f.path,
			size:     st.Size,
			mimeType: typeByName(f.Name()),
		},
		Name:         f.Name(),
		LastModified: st.ModifiedTime,
	}, nil
}

// Size returns the view's length in bytes.
func (b *Blob) Size() int64 { return b.size }

// Type returns the view's content type.
func (b *Blob) Type() string { return b.mimeType }

// clampIndex resolves a possibly negative slice index against max.
func clampIndex(pos, max int64) int64 {
	if pos < 0 {
		pos += max
		if pos < 0 {
			return 0
		}
		return pos
	}
	if pos > max {
		return max
	}
	return pos
}

// Slice returns a sub-view of [start, end) clamped to the blob's bounds.
// Negative indices count from the end. The slice reads independently via
// the same chunked path.
func (b *Blob) Slice(start, end int64, contentType string) *Blob {
	s := clampIndex(start, b.size)
	e := clampIndex(end, b.size)
	if e < s {
		e = s
	}
	return &Blob{
		fs:       b.fs,
		path:     b.path,
		start:    b.start + s,
		size:     e - s,
		mimeType: contentType,
	}
}

// ArrayBuffer reads the whole view into one buffer, issuing sequential
// chunked reads of at most the backend's max read size.
func (b *Blob) ArrayBuffer(ctx context.Context) ([]byte, error) {
	c, err := b.fs.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer b.fs.pool.Release(c)

	target := b.path.String()
	session, err := driver.Do(ctx, c.Driver(), "open "+target, func(bk backend.Backend) (*readSession, error) {
		return openRead(bk, target)
	})
	if err != nil {
		return nil, mapFileNotFound(err, b.path)
	}
	defer closeSession(c, session, target)

	end := b.start + b.size
	if session.size < end {
		end = session.size
	}
	buf := make([]byte, 0, b.size)
	for off := b.start; off < end; {
		chunkLen := int64(session.maxRead)
		if remaining := end - off; remaining < chunkLen {
			chunkLen = remaining
		}
		readOff := off
		chunk, err := driver.Do(ctx, c.Driver(), "pread "+target, func(bk backend.Backend) ([]byte, error) {
			p := make([]byte, chunkLen)
			n, err := session.f.ReadAt(p, readOff)
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return p[:n], nil
		})
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		buf = append(buf, chunk...)
		off += int64(len(chunk))
	}
	return buf, nil
}

// Text reads the whole view and returns it as a string.
func (b *Blob) Text(ctx context.Context) (string, error) {
	data, err := b.ArrayBuffer(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Stream returns a lazy, finite, non-restartable sequence of chunks,
// each of size min(maxRead, remaining). Cancel closes the underlying
// open file.
func (b *Blob) Stream() *ReadStream {
	return &ReadStream{blob: b}
}

// readSession pairs an open file with its bounds; created and used only
// on the driver goroutine.
type readSession struct {
	f       backend.File
	size    int64
	maxRead int
}

func openRead(bk backend.Backend, path string) (*readSession, error) {
	f, err := bk.Open(path, backend.OpenRead)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &readSession{f: f, size: st.Size, maxRead: bk.MaxReadSize()}, nil
}

func closeSession(c *pool.Context, s *readSession, target string) {
	if _, err := driver.Do(context.Background(), c.Driver(), "close "+target, func(bk backend.Backend) (struct{}, error) {
		return struct{}{}, s.f.Close()
	}); err != nil {
		log.Debugf("[FSA] close %s: %v", target, err)
	}
}

func mapFileNotFound(err error, path common.PathRef) error {
	if common.KindOf(err) == common.KindNotFound {
		return common.ErrFileNotFound(path.Name())
	}
	return err
}

// ReadStream pulls a blob chunk by chunk. The first Pull opens the file;
// the stream then holds its context until EOF, error or Cancel.
type ReadStream struct {
	blob      *Blob
	pctx      *pool.Context
	session   *readSession
	offset    int64
	end       int64
	started   bool
	finished  bool
	closeOnce sync.Once
}

// Pull returns the next chunk, or io.EOF when the view is exhausted.
func (s *ReadStream) Pull(ctx context.Context) ([]byte, error) {
	if s.finished {
		return nil, io.EOF
	}
	if !s.started {
		if err := s.open(ctx); err != nil {
			return nil, err
		}
	}
	if s.offset >= s.end {
		s.Cancel()
		return nil, io.EOF
	}

	chunkLen := int64(s.session.maxRead)
	if remaining := s.end - s.offset; remaining < chunkLen {
		chunkLen = remaining
	}
	readOff := s.offset
	session := s.session
	target := s.blob.path.String()
	chunk, err := driver.Do(ctx, s.pctx.Driver(), "pread "+target, func(bk backend.Backend) ([]byte, error) {
		p := make([]byte, chunkLen)
		n, err := session.f.ReadAt(p, readOff)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return p[:n], nil
	})
	if err != nil {
		s.Cancel()
		return nil, err
	}
	if len(chunk) == 0 {
		s.Cancel()
		return nil, io.EOF
	}
	s.offset += int64(len(chunk))
	return chunk, nil
}

func (s *ReadStream) open(ctx context.Context) error {
	pctx, err := s.blob.fs.acquire(ctx)
	if err != nil {
		return err
	}
	target := s.blob.path.String()
	session, err := driver.Do(ctx, pctx.Driver(), "open "+target, func(bk backend.Backend) (*readSession, error) {
		return openRead(bk, target)
	})
	if err != nil {
		s.blob.fs.pool.Release(pctx)
		return mapFileNotFound(err, s.blob.path)
	}
	s.pctx = pctx
	s.session = session
	s.started = true
	s.offset = s.blob.start
	s.end = s.blob.start + s.blob.size
	if session.size < s.end {
		s.end = session.size
	}
	return nil
}

// Cancel closes the underlying open file and ends the stream. Safe to
// call at any point; further Pulls return io.EOF.
func (s *ReadStream) Cancel() {
	s.finished = true
	if !s.started {
		return
	}
	s.closeOnce.Do(func() {
		closeSession(s.pctx, s.session, s.blob.path.String())
		s.blob.fs.pool.Release(s.pctx)
	})
}
