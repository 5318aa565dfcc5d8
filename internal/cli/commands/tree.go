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

	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print a directory subtree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fs, err := connect(ctx)
		if err != nil {
			return err
		}
		defer fs.Close()

		dir := fs.Root()
		if len(args) == 1 {
			if dir, err = walkTo(ctx, dir, args[0]); err != nil {
				return err
			}
		}
		fmt.Println(dir.Name() + "/")
		return printTree(ctx, dir, 1)
	},
}

func printTree(ctx context.Context, dir *fsa.DirectoryHandle, depth int) error {
	it, err := dir.Entries(ctx)
	if err != nil {
		return err
	}
	defer it.Close()
	indent := strings.Repeat("  ", depth)
	for {
		e, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}
		if sub, ok := e.AsDirectory(); ok {
			fmt.Println(indent + e.Name + "/")
			if err := printTree(ctx, sub, depth+1); err != nil {
				return err
			}
		} else {
			fmt.Println(indent + e.Name)
		}
	}
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
