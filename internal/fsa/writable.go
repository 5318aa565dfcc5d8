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
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"sharefs/internal/backend"
	"sharefs/internal/common"
	"sharefs/internal/driver"
	"sharefs/internal/pool"
)

// Write types accepted in WriteParams.Type.
const (
	WriteTypeWrite    = "write"
	WriteTypeSeek     = "seek"
	WriteTypeTruncate = "truncate"
)

// WriteParams is the structured form accepted by WritableStream.Write:
// {type: write|seek|truncate} with the fields the type requires.
type WriteParams struct {
	Type     string
	Data     any
	Position *int64
	Size     *int64
}

// CreateWritableOptions configures CreateWritable.
type CreateWritableOptions struct {
	KeepExistingData bool
}

// WritableStream writes to one file through a transient server-side
// open held for the stream's lifetime. State transitions:
// Open → (getWriter) Locked → (releaseLock) Open; close and abort are
// terminal. All methods are safe for concurrent use; the stream's
// owning task is expected to await each operation.
type WritableStream struct {
	mu       sync.Mutex
	fs       *FS
	path     common.PathRef
	name     string
	pctx     *pool.Context
	file     backend.File
	maxWrite int
	size     int64
	cursor   int64
	locked   bool
	closed   bool
	aborted  bool
}

// CreateWritable opens the file for writing. The default truncates; with
// KeepExistingData the current contents are preserved and the cursor
// starts at 0. The entry must exist (handles may outlive deletion).
func (f *FileHandle) CreateWritable(ctx context.Context, opts *CreateWritableOptions) (*WritableStream, error) {
	keep := opts != nil && opts.KeepExistingData

	pctx, err := f.fs.acquire(ctx)
	if err != nil {
		return nil, err
	}
	target := f.path.String()
	mode := backend.OpenWriteTruncate
	if keep {
		mode = backend.OpenWriteKeep
	}

	type opened struct {
		file     backend.File
		size     int64
		maxWrite int
	}
	o, err := driver.Do(ctx, pctx.Driver(), "open-writable "+target, func(b backend.Backend) (opened, error) {
		st, err := b.Stat(target)
		if err != nil {
			return opened{}, err
		}
		if st.Kind != backend.KindFile {
			return opened{}, common.ErrTypeMismatch()
		}
		file, err := b.Open(target, mode)
		if err != nil {
			return opened{}, err
		}
		size := int64(0)
		if keep {
			size = st.Size
		}
		return opened{file: file, size: size, maxWrite: b.MaxWriteSize()}, nil
	})
	if err != nil {
		f.fs.pool.Release(pctx)
		return nil, mapFileNotFound(err, f.path)
	}

	return &WritableStream{
		fs:       f.fs,
		path:     f.path,
		name:     f.Name(),
		pctx:     pctx,
		file:     o.file,
		maxWrite: o.maxWrite,
		size:     o.size,
	}, nil
}

// Size returns the stream's view of the file size.
func (w *WritableStream) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Cursor returns the current write position.
func (w *WritableStream) Cursor() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cursor
}

// Locked reports whether a writer currently holds the stream.
func (w *WritableStream) Locked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.locked
}

func (w *WritableStream) checkOpen() error {
	if w.closed || w.aborted {
		return common.ErrStreamClosed()
	}
	return nil
}

// Write accepts raw payloads ([]byte, string, fmt.Stringer, *Blob,
// *File) or a structured WriteParams. Raw payloads and {type: "write"}
// write at the cursor (or Position); {type: "seek"} and
// {type: "truncate"} behave like Seek and Truncate.
func (w *WritableStream) Write(ctx context.Context, data any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	op, err := parseWriteInput(data)
	if err != nil {
		return err
	}
	return w.apply(ctx, op)
}

func (w *WritableStream) apply(ctx context.Context, op *WriteParams) error {
	switch op.Type {
	case WriteTypeWrite:
		payload, err := materialize(ctx, op.Data, true)
		if err != nil {
			return err
		}
		pos := w.cursor
		if op.Position != nil {
			pos = *op.Position
		}
		if pos < 0 {
			return common.Errorf(common.KindInvalidState, "negative write position %d", pos)
		}
		return w.writeBytes(ctx, payload, pos)
	case WriteTypeSeek:
		if op.Position == nil {
			return common.Errorf(common.KindUnsupportedType,
				"Property position of type number is required when writing object with type=%q", WriteTypeSeek)
		}
		return w.seek(*op.Position)
	case WriteTypeTruncate:
		if op.Size == nil {
			return common.Errorf(common.KindUnsupportedType,
				"Property size of type number is required when writing object with type=%q", WriteTypeTruncate)
		}
		return w.truncate(ctx, *op.Size)
	default:
		return common.Errorf(common.KindUnsupportedType, "unknown write type %q", op.Type)
	}
}

// parseWriteInput normalizes Write's argument into a WriteParams.
func parseWriteInput(data any) (*WriteParams, error) {
	switch v := data.(type) {
	case *WriteParams:
		if v == nil {
			return nil, common.ErrUnsupportedType()
		}
		return v, nil
	case WriteParams:
		return &v, nil
	default:
		if !isRawPayload(data) {
			return nil, common.ErrUnsupportedType()
		}
		return &WriteParams{Type: WriteTypeWrite, Data: data}, nil
	}
}

func isRawPayload(data any) bool {
	switch data.(type) {
	case []byte, string, *Blob, *File, fmt.Stringer:
		return true
	}
	return false
}

// materialize turns a payload into bytes. wrapped selects which contract
// message a bad shape produces.
func materialize(ctx context.Context, data any, wrapped bool) ([]byte, error) {
	switch v := data.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case *File:
		return v.ArrayBuffer(ctx)
	case *Blob:
		return v.ArrayBuffer(ctx)
	case fmt.Stringer:
		return []byte(v.String()), nil
	case nil:
		if wrapped {
			return nil, common.Errorf(common.KindUnsupportedType,
				"Property data of type object or string is required when writing object with type=%q", WriteTypeWrite)
		}
		return nil, common.ErrUnsupportedType()
	default:
		if wrapped {
			return nil, common.ErrUnsupportedDataType()
		}
		return nil, common.ErrUnsupportedType()
	}
}

// writeBytes commits data at pos, zero-filling [size, pos) first when
// seeking past EOF, in chunks of at most maxWrite. On a partial failure
// size and cursor advance only past the committed ranges.
func (w *WritableStream) writeBytes(ctx context.Context, data []byte, pos int64) error {
	if pos > w.size {
		if err := w.extendZero(ctx, pos); err != nil {
			return err
		}
		w.size = pos
	}

	file := w.file
	target := w.path.String()
	var committed int64
	for committed < int64(len(data)) {
		chunk := data[committed:]
		if len(chunk) > w.maxWrite {
			chunk = chunk[:w.maxWrite]
		}
		off := pos + committed
		n, err := driver.Do(ctx, w.pctx.Driver(), "pwrite "+target, func(b backend.Backend) (int, error) {
			return file.WriteAt(chunk, off)
		})
		committed += int64(n)
		if err != nil {
			if end := pos + committed; end > w.size {
				w.size = end
			}
			w.cursor = pos + committed
			return err
		}
	}

	w.cursor = pos + int64(len(data))
	if w.cursor > w.size {
		w.size = w.cursor
	}
	w.fs.probes.InvalidatePath(target)
	return nil
}

// extendZero zero-fills up to pos via server-side end-of-file extension.
func (w *WritableStream) extendZero(ctx context.Context, pos int64) error {
	file := w.file
	target := w.path.String()
	_, err := driver.Do(ctx, w.pctx.Driver(), "extend "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, file.Truncate(pos)
	})
	return err
}

// Seek sets the cursor without touching the file; positions past EOF are
// sparse intent, realized by the next write.
func (w *WritableStream) Seek(ctx context.Context, pos int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.seek(pos)
}

func (w *WritableStream) seek(pos int64) error {
	if pos < 0 {
		return common.Errorf(common.KindInvalidState, "negative seek position %d", pos)
	}
	w.cursor = pos
	return nil
}

// Truncate sets the file size exactly; extending zero-fills. A cursor
// beyond the new size, or sitting at the old end, moves to the new end.
func (w *WritableStream) Truncate(ctx context.Context, size int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	return w.truncate(ctx, size)
}

func (w *WritableStream) truncate(ctx context.Context, size int64) error {
	if size < 0 {
		return common.Errorf(common.KindInvalidState, "negative truncate size %d", size)
	}
	file := w.file
	target := w.path.String()
	_, err := driver.Do(ctx, w.pctx.Driver(), "truncate "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, file.Truncate(size)
	})
	if err != nil {
		return err
	}
	oldSize := w.size
	w.size = size
	if w.cursor > size || w.cursor == oldSize {
		w.cursor = size
	}
	w.fs.probes.InvalidatePath(target)
	return nil
}

// Close flushes and closes the server-side open; every subsequent
// operation fails with the closed-stream contract.
func (w *WritableStream) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.closed = true
	return w.release(ctx)
}

// Abort discards pending writes, closes the server-side open and marks
// the stream aborted.
func (w *WritableStream) Abort(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.aborted = true
	log.Debugf("[FSA] writable %s aborted: %s", w.path, reason)
	return w.release(ctx)
}

func (w *WritableStream) release(ctx context.Context) error {
	file := w.file
	target := w.path.String()
	_, err := driver.Do(ctx, w.pctx.Driver(), "close-writable "+target, func(b backend.Backend) (struct{}, error) {
		return struct{}{}, file.Close()
	})
	w.fs.pool.Release(w.pctx)
	return err
}

// Writer is the exclusive single-holder sink over a WritableStream.
type Writer struct {
	stream   *WritableStream
	released bool
}

// GetWriter locks the stream and returns its writer. A second call
// before ReleaseLock fails with the locked-stream contract.
func (w *WritableStream) GetWriter() (*Writer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locked {
		return nil, common.ErrStreamLocked()
	}
	w.locked = true
	return &Writer{stream: w}, nil
}

func (wr *Writer) check() error {
	if wr.released {
		return common.Errorf(common.KindInvalidState, "writer has been released")
	}
	return nil
}

// Write commits one chunk. Structured seek/truncate payloads are not
// valid chunks.
func (wr *Writer) Write(ctx context.Context, data any) error {
	if err := wr.check(); err != nil {
		return err
	}
	op, err := parseWriteInput(data)
	if err != nil {
		return err
	}
	if op.Type != WriteTypeWrite {
		return common.Errorf(common.KindUnsupportedType, "invalid chunk")
	}
	wr.stream.mu.Lock()
	defer wr.stream.mu.Unlock()
	if err := wr.stream.checkOpen(); err != nil {
		return err
	}
	return wr.stream.apply(ctx, op)
}

// Close closes the underlying stream.
func (wr *Writer) Close(ctx context.Context) error {
	if err := wr.check(); err != nil {
		return err
	}
	return wr.stream.Close(ctx)
}

// Abort aborts the underlying stream.
func (wr *Writer) Abort(ctx context.Context, reason string) error {
	if err := wr.check(); err != nil {
		return err
	}
	return wr.stream.Abort(ctx, reason)
}

// ReleaseLock detaches the writer and unlocks the stream.
func (wr *Writer) ReleaseLock() {
	wr.stream.mu.Lock()
	defer wr.stream.mu.Unlock()
	wr.released = true
	wr.stream.locked = false
}
