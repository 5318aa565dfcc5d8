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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
)

var putCmd = &cobra.Command{
	Use:   "put <local-path> [remote-path]",
	Short: "Copy a local file onto the share",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		remote := filepath.Base(args[0])
		if len(args) == 2 {
			remote = args[1]
		}

		fs, err := connect(ctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		segs := splitArgPath(remote)
		dir, err := walkTo(ctx, fs.Root(), strings.Join(segs[:len(segs)-1], "/"))
		if err != nil {
			return err
		}
		fh, err := dir.GetFileHandle(ctx, segs[len(segs)-1], &fsa.GetFileOptions{Create: true})
		if err != nil {
			return err
		}
		w, err := fh.CreateWritable(ctx, nil)
		if err != nil {
			return err
		}
		if err := w.Write(ctx, data); err != nil {
			w.Abort(ctx, err.Error())
			return err
		}
		if err := w.Close(ctx); err != nil {
			return err
		}
		fmt.Printf("%s -> %s (%d bytes)\n", args[0], remote, len(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
