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
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <remote-path> [local-path]",
	Short: "Copy a file from the share to the local filesystem",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fs, err := connect(ctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		fh, err := fileHandleAt(ctx, fs.Root(), args[0])
		if err != nil {
			return err
		}
		file, err := fh.GetFile(ctx)
		if err != nil {
			return err
		}

		local := filepath.Base(args[0])
		if len(args) == 2 {
			local = args[1]
		}
		out, err := os.Create(local)
		if err != nil {
			return err
		}
		defer out.Close()

		stream := file.Stream()
		defer stream.Cancel()
		var written int64
		for {
			chunk, err := stream.Pull(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			n, err := out.Write(chunk)
			written += int64(n)
			if err != nil {
				return err
			}
		}
		fmt.Printf("%s -> %s (%d bytes)\n", args[0], local, written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
