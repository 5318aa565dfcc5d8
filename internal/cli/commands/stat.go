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

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sharefs/internal/common"
	"sharefs/internal/fsa"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Show an entry's metadata and effective permissions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fs, err := connect(ctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		handle, err := handleAt(ctx, fs, args[0])
		if err != nil {
			return err
		}
		st, err := handle.Entry().Stat(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("name:     %s\n", handle.Entry().Name())
		fmt.Printf("kind:     %s\n", st.Kind)
		fmt.Printf("size:     %d\n", st.Size)
		if st.Inode != 0 {
			fmt.Printf("inode:    %d\n", st.Inode)
		}
		fmt.Printf("created:  %s\n", time.UnixMilli(st.CreationTime).Format(time.RFC3339))
		fmt.Printf("modified: %s\n", time.UnixMilli(st.ModifiedTime).Format(time.RFC3339))
		fmt.Printf("accessed: %s\n", time.UnixMilli(st.AccessedTime).Format(time.RFC3339))

		read, err := handle.Entry().QueryPermission(ctx, fsa.PermissionRead)
		if err != nil {
			return err
		}
		write, err := handle.Entry().QueryPermission(ctx, fsa.PermissionReadWrite)
		if err != nil {
			return err
		}
		fmt.Printf("read:      %s\nreadwrite: %s\n", read, write)
		return nil
	},
}

// handleAt resolves a path as a file first, falling back to a directory.
func handleAt(ctx context.Context, fs *fsa.FS, path string) (fsa.AnyHandle, error) {
	segs := splitArgPath(path)
	if len(segs) == 0 {
		return fs.Root(), nil
	}
	dir, err := walkTo(ctx, fs.Root(), strings.Join(segs[:len(segs)-1], "/"))
	if err != nil {
		return nil, err
	}
	name := segs[len(segs)-1]
	if fh, err := dir.GetFileHandle(ctx, name, nil); err == nil {
		return fh, nil
	} else if common.KindOf(err) != common.KindNotFound && common.KindOf(err) != common.KindTypeMismatch {
		return nil, err
	}
	return dir.GetDirectoryHandle(ctx, name, nil)
}

func init() {
	rootCmd.AddCommand(statCmd)
}
