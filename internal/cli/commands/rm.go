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
	"strings"

	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
)

var rmRecursive bool

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or directory on the share",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		segs := splitArgPath(args[0])
		if len(segs) == 0 {
			return fmt.Errorf("cannot remove the share root")
		}

		fs, err := connect(ctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		dir, err := walkTo(ctx, fs.Root(), strings.Join(segs[:len(segs)-1], "/"))
		if err != nil {
			return err
		}
		return dir.RemoveEntry(ctx, segs[len(segs)-1], &fsa.RemoveOptions{Recursive: rmRecursive})
	},
}

func init() {
	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "remove directories and their contents")
	rootCmd.AddCommand(rmCmd)
}
