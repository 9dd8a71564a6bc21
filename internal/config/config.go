// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves the debugger coordinator's CLI surface: flags,
// an optional INI config file, and built-in defaults, in that override
// order (CLI overrides file overrides built-ins).
package config

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// Built-in defaults for the host/port the coordinator listens on.
const (
	DefaultHost       = "localhost"
	DefaultClientPort = 8765
	DefaultUIPort     = 4567
)

// Config is the fully resolved server configuration.
type Config struct {
	Host       string
	ClientPort int
	UIPort     int
	Runs       []string
	Model      string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Host:       DefaultHost,
		ClientPort: DefaultClientPort,
		UIPort:     DefaultUIPort,
	}
}

// fileSections is the INI section search order: an explicit [debugger]
// section wins, falling back to [server], falling back to DEFAULT.
var fileSections = []string{"debugger", "server", ini.DefaultSection}

// LoadFile reads host/client_port/ui_port/runs/model from path, applying
// them over base wherever the file sets them.
func LoadFile(path string, base Config) (Config, error) {
	cfg := base
	f, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}

	get := func(key string) (string, bool) {
		for _, section := range fileSections {
			if !f.HasSection(section) {
				continue
			}
			v := f.Section(section).Key(key).Value()
			if v != "" {
				return v, true
			}
		}
		return "", false
	}

	if v, ok := get("host"); ok {
		cfg.Host = v
	}
	if v, ok := get("client_port"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ClientPort = n
		}
	}
	if v, ok := get("ui_port"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UIPort = n
		}
	}
	if v, ok := get("model"); ok {
		cfg.Model = v
	}
	if v, ok := get("runs"); ok {
		cfg.Runs = append(cfg.Runs, splitRuns(v)...)
	}

	return cfg, nil
}

var runsSeparator = regexp.MustCompile(`[,\s]+`)

// splitRuns parses the `runs` key's value, a comma- and/or
// whitespace-separated list of run file paths.
func splitRuns(value string) []string {
	var paths []string
	for _, part := range runsSeparator.Split(strings.TrimSpace(value), -1) {
		if part != "" {
			paths = append(paths, part)
		}
	}
	return paths
}

// CLIOverrides carries the flag values a cobra command parsed, alongside
// whether each was explicitly set, so MergeCLI can apply only the ones the
// user actually passed.
type CLIOverrides struct {
	Host          string
	HostSet       bool
	ClientPort    int
	ClientPortSet bool
	UIPort        int
	UIPortSet     bool
	Model         string
	ModelSet      bool
	Runs          []string
}

// MergeCLI layers CLI-provided values over cfg, the final step in the
// CLI-overrides-file-overrides-built-ins chain.
func MergeCLI(cfg Config, cli CLIOverrides) Config {
	if cli.HostSet {
		cfg.Host = cli.Host
	}
	if cli.ClientPortSet {
		cfg.ClientPort = cli.ClientPort
	}
	if cli.UIPortSet {
		cfg.UIPort = cli.UIPort
	}
	if cli.ModelSet {
		cfg.Model = cli.Model
	}
	if len(cli.Runs) > 0 {
		cfg.Runs = cli.Runs
	}
	return cfg
}
