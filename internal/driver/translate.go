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

package driver

import (
	"context"
	"errors"
	"os"
	"strings"
	"syscall"

	"sharefs/internal/backend"
	"sharefs/internal/common"
)

// Translate maps a backend error to the shared taxonomy. Errors already
// carrying a kind pass through; everything unrecognized becomes KindIO
// with the backend message verbatim.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ce *common.Error
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, syscall.ENOENT):
		return common.WrapError(common.KindNotFound, "entry not found", err)
	case errors.Is(err, os.ErrPermission), errors.Is(err, syscall.EACCES):
		return common.WrapError(common.KindPermissionDenied, "permission denied", err)
	case errors.Is(err, backend.ErrNotEmpty), errors.Is(err, syscall.ENOTEMPTY):
		return common.WrapError(common.KindNotEmpty, "directory not empty", err)
	case errors.Is(err, backend.ErrIsDirectory), errors.Is(err, syscall.EISDIR):
		return common.WrapError(common.KindTypeMismatch, "is a directory", err)
	case errors.Is(err, backend.ErrNotDirectory), errors.Is(err, syscall.ENOTDIR):
		return common.WrapError(common.KindTypeMismatch, "not a directory", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return common.WrapError(common.KindCancelled, "operation cancelled", err)
	}
	// SMB status strings the client library reports without a typed error.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "STATUS_DIRECTORY_NOT_EMPTY"):
		return common.WrapError(common.KindNotEmpty, "directory not empty", err)
	case strings.Contains(msg, "STATUS_OBJECT_NAME_NOT_FOUND"),
		strings.Contains(msg, "STATUS_OBJECT_PATH_NOT_FOUND"):
		return common.WrapError(common.KindNotFound, "entry not found", err)
	case strings.Contains(msg, "STATUS_ACCESS_DENIED"):
		return common.WrapError(common.KindPermissionDenied, "permission denied", err)
	case strings.Contains(msg, "STATUS_FILE_IS_A_DIRECTORY"):
		return common.WrapError(common.KindTypeMismatch, "is a directory", err)
	}
	return common.WrapError(common.KindIO, "", err)
}
