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

// Package runlog writes a human-readable transcript of a finished run to
// the log directory at agent disconnect. The format has no machine
// contract; only the persisted-blob format (internal/codec) is meant for
// round-tripping.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teradata-labs/loomdbg/internal/message"
	"github.com/teradata-labs/loomdbg/internal/model"
)

// Writer writes finished runs to a directory, one file per run.
type Writer struct {
	Dir string
}

// New builds a Writer rooted at dir. The directory is created by WriteRun
// when it does not exist yet.
func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// WriteRun implements coordinator.RunLogger.
func (w *Writer) WriteRun(run *model.Run) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.log", sanitize(run.Name), run.StartTime.Format("2006-01-02_15-04-05"))
	path := filepath.Join(w.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	defer f.Close()

	return render(f, run)
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "-")
	return replacer.Replace(name)
}

func render(w *os.File, run *model.Run) error {
	if _, err := fmt.Fprintf(w, "Run: %s\nProgram: %s\nStart: %s\nServerVersion: %s\n\n",
		run.Name, run.ProgramName, run.StartTime.Format(time.RFC3339), run.ServerVersion); err != nil {
		return err
	}

	for _, ev := range run.OrderedEvents() {
		if _, err := fmt.Fprintf(w, "[%s] event %s (%s)\n", ev.CreatedAt.Format(time.RFC3339), ev.Type, ev.ID); err != nil {
			return err
		}
		for _, m := range message.FromEvent(ev) {
			summary := m.Summary
			if summary == "" {
				summary = "(no summary)"
			}
			if _, err := fmt.Fprintf(w, "  %s -> %s: %s\n", m.From, m.To, summary); err != nil {
				return err
			}
		}
	}

	if len(run.Commits) > 0 {
		if _, err := fmt.Fprintf(w, "\nCommits:\n"); err != nil {
			return err
		}
		for _, c := range run.Commits {
			if _, err := fmt.Fprintf(w, "  %s %s (%d files)\n", c.ID, c.Title, len(c.Changes)); err != nil {
				return err
			}
		}
	}
	return nil
}
