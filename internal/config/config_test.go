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
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeIni(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loomdbg.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadFilePrefersDebuggerSection(t *testing.T) {
	path := writeIni(t, `
[server]
host = server-host
client_port = 1111

[debugger]
host = debugger-host
ui_port = 2222
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)

	require.Equal(t, "debugger-host", cfg.Host) // [debugger] wins over [server]
	require.Equal(t, 1111, cfg.ClientPort)       // falls back to [server] when [debugger] is silent
	require.Equal(t, 2222, cfg.UIPort)
}

func TestLoadFileFallsBackToDefaultSection(t *testing.T) {
	path := writeIni(t, `
host = bare-host
model = claude-3-5-haiku-20241022
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)

	require.Equal(t, "bare-host", cfg.Host)
	require.Equal(t, "claude-3-5-haiku-20241022", cfg.Model)
	require.Equal(t, DefaultClientPort, cfg.ClientPort)
}

func TestLoadFileSplitsRunsList(t *testing.T) {
	path := writeIni(t, `
[debugger]
runs = a.log, b.log   c.log
`)
	cfg, err := LoadFile(path, Default())
	require.NoError(t, err)

	require.Equal(t, []string{"a.log", "b.log", "c.log"}, cfg.Runs)
}

func TestSplitRuns(t *testing.T) {
	require.Equal(t, []string{"a.log"}, splitRuns("a.log"))
	require.Equal(t, []string{"a.log", "b.log"}, splitRuns("a.log,b.log"))
	require.Equal(t, []string{"a.log", "b.log"}, splitRuns("  a.log ,  b.log  "))
	require.Nil(t, splitRuns(""))
}

func TestMergeCLIOnlyAppliesSetFlags(t *testing.T) {
	base := Config{Host: "file-host", ClientPort: 1, UIPort: 2, Model: "file-model"}

	merged := MergeCLI(base, CLIOverrides{
		Host:    "cli-host",
		HostSet: true,
		// ClientPort/UIPort/Model left unset.
	})

	require.Equal(t, "cli-host", merged.Host)
	require.Equal(t, 1, merged.ClientPort)
	require.Equal(t, 2, merged.UIPort)
	require.Equal(t, "file-model", merged.Model)
}

func TestMergeCLIRunsReplaceRatherThanAppend(t *testing.T) {
	base := Config{Runs: []string{"a.blob"}}
	merged := MergeCLI(base, CLIOverrides{Runs: []string{"b.blob", "c.blob"}})
	require.Equal(t, []string{"b.blob", "c.blob"}, merged.Runs)
}
