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
	"time"

	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
)

var lsLong bool

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory on the share",
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

		it, err := dir.Entries(ctx)
		if err != nil {
			return err
		}
		defer it.Close()
		for {
			e, err := it.Next(ctx)
			if err != nil {
				return err
			}
			if e == nil {
				return nil
			}
			if !lsLong {
				fmt.Println(e.Name)
				continue
			}
			st, err := e.Handle.Entry().Stat(ctx)
			if err != nil {
				return err
			}
			marker := "-"
			if st.Kind == fsa.KindDirectory {
				marker = "d"
			}
			fmt.Printf("%s %12d %s %s\n", marker, st.Size,
				time.UnixMilli(st.ModifiedTime).Format(time.RFC3339), e.Name)
		}
	},
}

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "long listing with size and mtime")
	rootCmd.AddCommand(lsCmd)
}
