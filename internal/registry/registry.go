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
// Package registry holds the ordered history of completed runs plus the
// at-most-one active run, with safe concurrent lookup and mutation.
package registry

import (
	"errors"

	"github.com/google/uuid"

	"github.com/teradata-labs/loomdbg/internal/csync"
	"github.com/teradata-labs/loomdbg/internal/model"
)

// ErrCannotDeleteActive is returned when the UI asks to delete the run
// that is currently active.
var ErrCannotDeleteActive = errors.New("cannot delete the active run")

// Registry owns run history and the current active run. Callers holding
// the coordinator's mutex are expected to serialize mutation; Registry's
// own locking only protects its internal bookkeeping against concurrent
// readers such as a status endpoint.
type Registry struct {
	history *csync.Slice[*model.Run]
	active  *model.Run
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{history: csync.NewSlice[*model.Run]()}
}

// Active returns the currently active run, or nil.
func (r *Registry) Active() *model.Run {
	return r.active
}

// SetActive installs run as the active run.
func (r *Registry) SetActive(run *model.Run) {
	r.active = run
}

// ActivateDone moves the active run into history and clears Active.
func (r *Registry) ActivateDone() {
	if r.active == nil {
		return
	}
	r.history.Append(r.active)
	r.active = nil
}

// Append adds run directly to history, used for imports and preloads
// where no active run lifecycle applies.
func (r *Registry) Append(run *model.Run) {
	r.history.Append(run)
}

// CountByProgram returns how many runs (history plus active) share
// programName, used to number a fresh run's default name.
func (r *Registry) CountByProgram(programName string) int {
	n := 0
	if r.active != nil && r.active.ProgramName == programName {
		n++
	}
	r.history.Range(func(_ int, run *model.Run) bool {
		if run.ProgramName == programName {
			n++
		}
		return true
	})
	return n
}

// History returns a snapshot slice of completed runs in insertion order.
func (r *Registry) History() []*model.Run {
	return r.history.Items()
}

// All returns history followed by the active run if any, the order the
// UI's init_app_state snapshot uses.
func (r *Registry) All() []*model.Run {
	runs := r.history.Items()
	if r.active != nil {
		runs = append(runs, r.active)
	}
	return runs
}

// Lookup scans the active run then history for a run matching id. An
// invalid UUID string yields nil, the same as an unknown id.
func (r *Registry) Lookup(idString string) *model.Run {
	id, err := uuid.Parse(idString)
	if err != nil {
		return nil
	}
	if r.active != nil && r.active.ID == id {
		return r.active
	}
	var found *model.Run
	r.history.Range(func(_ int, run *model.Run) bool {
		if run.ID == id {
			found = run
			return false
		}
		return true
	})
	return found
}

// Delete removes the run with the given id from history. It refuses to
// delete the active run.
func (r *Registry) Delete(idString string) error {
	id, err := uuid.Parse(idString)
	if err != nil {
		return nil // invalid id: nothing to delete, not an error
	}
	if r.active != nil && r.active.ID == id {
		return ErrCannotDeleteActive
	}
	items := r.history.Items()
	kept := items[:0:0]
	for _, run := range items {
		if run.ID != id {
			kept = append(kept, run)
		}
	}
	r.history.Set(kept)
	return nil
}
