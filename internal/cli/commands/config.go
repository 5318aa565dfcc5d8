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
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the CLI-side settings file. It holds URL aliases only; the
// core persists nothing.
type Config struct {
	// Aliases maps short names to share URLs.
	Aliases map[string]string `yaml:"aliases"`
}

// getConfigDir returns the config directory path.
// Uses SHAREFS_CONFIG_DIR env var if set, otherwise defaults to ~/.sharefs.
func getConfigDir() string {
	if dir := os.Getenv("SHAREFS_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sharefs")
}

// ConfigPath returns the settings file path.
func ConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// LoadConfig reads the settings file; a missing file is an empty config.
func LoadConfig() (*Config, error) {
	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveAlias maps a bare name through the alias table. URLs pass
// through untouched.
func resolveAlias(raw string) (string, bool) {
	if strings.Contains(raw, "://") {
		return raw, false
	}
	cfg, err := LoadConfig()
	if err != nil {
		log.Debugf("[CLI] config load failed: %v", err)
		return raw, false
	}
	url, ok := cfg.Aliases[raw]
	return url, ok
}

// splitArgPath splits a user-supplied path argument.
func splitArgPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
