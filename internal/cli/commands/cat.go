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
	"io"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file's contents",
	Args:  cobra.ExactArgs(1),
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
		stream := file.Stream()
		defer stream.Cancel()
		for {
			chunk, err := stream.Pull(ctx)
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if _, err := os.Stdout.Write(chunk); err != nil {
				return err
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
