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

	"sharefs/internal/backend"
	"sharefs/internal/common"
)

// HandleKind tags a handle as directory or file.
type HandleKind string

const (
	KindDirectory HandleKind = "directory"
	KindFile      HandleKind = "file"
)

// Handle is a descriptive reference to an entry: endpoint + path + kind.
// It is independent of any server-side open and may outlive the entry it
// names; operations on a deleted entry fail with the not-found contract.
type Handle struct {
	fs   *FS
	path common.PathRef
	kind HandleKind
}

// AnyHandle is satisfied by Handle, DirectoryHandle and FileHandle.
type AnyHandle interface {
	Entry() *Handle
}

// Entry returns the descriptive handle value itself.
func (h *Handle) Entry() *Handle { return h }

// Kind reports whether this handle names a directory or a file.
func (h *Handle) Kind() HandleKind { return h.kind }

// Name returns the last path segment, or the share name for the root.
func (h *Handle) Name() string {
	if h.path.IsRoot() {
		return h.fs.endpoint.Share
	}
	return h.path.Name()
}

// Path returns a copy of the share-relative path.
func (h *Handle) Path() common.PathRef {
	p := make(common.PathRef, len(h.path))
	copy(p, h.path)
	return p
}

// IsSameEntry reports value identity: same endpoint, same kind, same path.
func (h *Handle) IsSameEntry(other AnyHandle) bool {
	if other == nil {
		return false
	}
	o := other.Entry()
	return h.fs.endpoint.Equal(o.fs.endpoint) && h.kind == o.kind && h.path.Equal(o.path)
}

// StatRecord is the metadata surface of an entry. Times are epoch
// milliseconds; Inode is 0 when the backend cannot supply one.
type StatRecord struct {
	Inode        uint64
	Size         int64
	CreationTime int64
	ModifiedTime int64
	AccessedTime int64
	Kind         HandleKind
}

// Stat fetches the entry's metadata from the server.
func (h *Handle) Stat(ctx context.Context) (StatRecord, error) {
	path := h.path.String()
	st, err := do(ctx, h.fs, "stat "+path, func(b backend.Backend) (backend.Stat, error) {
		return b.Stat(path)
	})
	if err != nil {
		return StatRecord{}, h.notFound(err)
	}
	return recordOf(st), nil
}

func recordOf(st backend.Stat) StatRecord {
	kind := KindFile
	if st.Kind == backend.KindDirectory {
		kind = KindDirectory
	}
	return StatRecord{
		Inode:        st.Inode,
		Size:         st.Size,
		CreationTime: st.CreationTime.UnixMilli(),
		ModifiedTime: st.ModifiedTime.UnixMilli(),
		AccessedTime: st.AccessedTime.UnixMilli(),
		Kind:         kind,
	}
}

// notFound substitutes the contract message for this handle's kind.
func (h *Handle) notFound(err error) error {
	if common.KindOf(err) != common.KindNotFound {
		return err
	}
	if h.kind == KindDirectory {
		return common.ErrDirectoryNotFound(h.Name())
	}
	return common.ErrFileNotFound(h.Name())
}
