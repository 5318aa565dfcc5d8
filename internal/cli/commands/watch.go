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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
)

var (
	watchInterval time.Duration
	watchIgnore   []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory subtree for changes",
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

		sub, err := dir.Watch(ctx, func(ev fsa.WatchEvent) error {
			fmt.Printf("%s %s\n", ev.Action, ev.Path)
			return nil
		}, &fsa.WatchOptions{Interval: watchInterval, Ignore: watchIgnore})
		if err != nil {
			return err
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		sub.Cancel()
		return sub.Wait(ctx)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "polling interval (default 500ms)")
	watchCmd.Flags().StringSliceVar(&watchIgnore, "ignore", nil, "gitignore-style patterns to drop from events")
	rootCmd.AddCommand(watchCmd)
}
