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
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sharefs/internal/fsa"
	"sharefs/internal/util"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagURL     string
	flagVerbose bool
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}

var rootCmd = &cobra.Command{
	Use:   "sharefs",
	Short: "Browse and edit SMB shares through a File System Access style API",
	Long: `sharefs exposes a remote SMB share as a handle-oriented filesystem.
Shares are addressed by URL:

  smb://[domain;][user[:password]@]host[:port]/share[/path][?sec=ntlmssp|krb5cc]

The URL comes from --url, the SMB_URL environment variable, or an alias
defined in the config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagURL, "url", "u", "", "share URL or config alias (default: $SMB_URL)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// shareURL resolves the target URL: --url flag, alias lookup, SMB_URL.
func shareURL() (string, error) {
	raw := flagURL
	if raw == "" {
		raw = os.Getenv("SMB_URL")
	}
	if raw == "" {
		return "", fmt.Errorf("no share URL: pass --url or set SMB_URL")
	}
	if resolved, ok := resolveAlias(raw); ok {
		return resolved, nil
	}
	return raw, nil
}

// connect dials the share, retrying transient failures. Retrying is a
// caller policy; the core attempts each connect exactly once.
func connect(ctx context.Context) (*fsa.FS, error) {
	raw, err := shareURL()
	if err != nil {
		return nil, err
	}
	return util.RetryWithResult(ctx, func() (*fsa.FS, error) {
		return fsa.Connect(ctx, raw)
	}, util.ConnectRetryOptions(ctx)...)
}

// walkTo descends from root along a "/"-separated path.
func walkTo(ctx context.Context, root *fsa.DirectoryHandle, path string) (*fsa.DirectoryHandle, error) {
	dir := root
	for _, seg := range splitArgPath(path) {
		next, err := dir.GetDirectoryHandle(ctx, seg, nil)
		if err != nil {
			return nil, err
		}
		dir = next
	}
	return dir, nil
}

// fileHandleAt resolves a "/"-separated path to a file handle.
func fileHandleAt(ctx context.Context, root *fsa.DirectoryHandle, path string) (*fsa.FileHandle, error) {
	segs := splitArgPath(path)
	if len(segs) == 0 {
		return nil, fmt.Errorf("not a file path: %q", path)
	}
	dir, err := walkTo(ctx, root, strings.Join(segs[:len(segs)-1], "/"))
	if err != nil {
		return nil, err
	}
	return dir.GetFileHandle(ctx, segs[len(segs)-1], nil)
}
