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

// Package backend abstracts the SMB client library behind the operation
// set the I/O driver needs. Paths are share-relative, "/"-separated, ""
// for the share root. Implementations are not required to be safe for
// concurrent use; the driver serializes all calls onto one goroutine.
package backend

import (
	"context"
	"errors"
	"os"
	"time"

	"sharefs/internal/smburl"
)

// DefaultMaxIOSize bounds a single read or write request. 8 MiB matches
// the max I/O size observed on stock Samba servers.
const DefaultMaxIOSize = 8 << 20

// Sentinel errors shared by implementations. Not-found and permission
// conditions reuse os.ErrNotExist and os.ErrPermission.
var (
	ErrIsDirectory  = errors.New("is a directory")
	ErrNotDirectory = errors.New("not a directory")
	ErrNotEmpty     = errors.New("directory not empty")
)

// EntryKind distinguishes files from directories.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDirectory
)

func (k EntryKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Stat describes one entry.
type Stat struct {
	Inode        uint64 // 0 when the server does not supply one
	Size         int64
	CreationTime time.Time
	ModifiedTime time.Time
	AccessedTime time.Time
	Kind         EntryKind
}

// DirEntry is one step of a directory enumeration. Servers may deliver
// "." and ".."; filtering is the caller's concern.
type DirEntry struct {
	Name         string
	Kind         EntryKind
	Size         int64
	ModifiedTime time.Time
}

// OpenMode selects how Open positions an existing file.
type OpenMode int

const (
	OpenRead OpenMode = iota
	OpenWriteKeep
	OpenWriteTruncate
)

// File is a transient server-side open.
type File interface {
	Stat() (Stat, error)
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	// Truncate sets the end of file; extending zero-fills.
	Truncate(size int64) error
	Close() error
}

// Dir is a server-side enumeration cursor. Next returns io.EOF when
// exhausted; restarting requires a fresh OpenDir.
type Dir interface {
	Next() (DirEntry, error)
	Close() error
}

// Backend is the contract the driver pumps. It mirrors the subset of
// libsmb2 the original bridge relied on.
type Backend interface {
	Stat(path string) (Stat, error)
	OpenDir(path string) (Dir, error)
	Open(path string, mode OpenMode) (File, error)
	Create(path string) (File, error)
	Mkdir(path string) error
	Rmdir(path string) error
	Unlink(path string) error
	Truncate(path string, size int64) error
	MaxReadSize() int
	MaxWriteSize() int
	Close() error
}

// DialFunc connects a backend to an endpoint.
type DialFunc func(ctx context.Context, ep *smburl.Endpoint) (Backend, error)

// EnvUseMocks selects the in-memory backend for every dial, for test
// harnesses without a reachable server.
const EnvUseMocks = "SMB_USE_MOCKS"

// Dial is the default DialFunc: the go-smb2 transport, or the seeded
// in-memory backend when SMB_USE_MOCKS is set.
func Dial(ctx context.Context, ep *smburl.Endpoint) (Backend, error) {
	if os.Getenv(EnvUseMocks) != "" {
		return NewMemoryFixture(), nil
	}
	return DialSMB2(ctx, ep)
}
