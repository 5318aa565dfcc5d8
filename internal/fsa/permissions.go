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

	"sharefs/internal/backend"
	"sharefs/internal/common"
)

// PermissionMode selects what a permission query asks about.
type PermissionMode string

const (
	PermissionRead      PermissionMode = "read"
	PermissionReadWrite PermissionMode = "readwrite"
)

// PermissionState is a query outcome. SMB has no interactive prompt, so
// "prompt" never occurs.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// QueryPermission reports the effective permission for mode. Read is
// granted for any existing entry (the share is already open); readwrite
// probes the server ACL with a side-effect-free open-for-write. Existing
// entries never produce an error, only granted or denied.
func (h *Handle) QueryPermission(ctx context.Context, mode PermissionMode) (PermissionState, error) {
	if mode != PermissionRead && mode != PermissionReadWrite {
		return "", common.Errorf(common.KindUnsupportedType, "unknown permission mode %q", mode)
	}

	target := h.path.String()
	if state, ok := h.fs.probes.Get(target, string(mode)); ok {
		return PermissionState(state), nil
	}

	if _, err := h.Stat(ctx); err != nil {
		return "", err
	}
	state := PermissionGranted
	if mode == PermissionReadWrite {
		probed, err := h.probeWrite(ctx, target)
		if err != nil {
			return "", err
		}
		state = probed
	}
	h.fs.probes.Set(target, string(mode), string(state))
	return state, nil
}

// RequestPermission behaves exactly like QueryPermission: there is no
// prompt to escalate through.
func (h *Handle) RequestPermission(ctx context.Context, mode PermissionMode) (PermissionState, error) {
	return h.QueryPermission(ctx, mode)
}

// probeWrite opens the entry for write without modifying it. A denied
// open means the ACL forbids writing; a directory open surfacing the
// is-a-directory condition means the ACL check itself passed.
func (h *Handle) probeWrite(ctx context.Context, target string) (PermissionState, error) {
	_, err := do(ctx, h.fs, "probe "+target, func(b backend.Backend) (struct{}, error) {
		f, err := b.Open(target, backend.OpenWriteKeep)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, f.Close()
	})
	switch {
	case err == nil:
		return PermissionGranted, nil
	case common.KindOf(err) == common.KindPermissionDenied:
		return PermissionDenied, nil
	case common.KindOf(err) == common.KindTypeMismatch, errors.Is(err, backend.ErrIsDirectory):
		return PermissionGranted, nil
	default:
		return "", err
	}
}
