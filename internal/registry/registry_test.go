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
package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/loomdbg/internal/model"
)

func newTestRun(name string) *model.Run {
	return model.NewRun(name, "demo", time.Now(), "v1.0.0")
}

func TestLookupActiveThenHistory(t *testing.T) {
	reg := New()
	historical := newTestRun("r1")
	reg.Append(historical)
	active := newTestRun("r2")
	reg.SetActive(active)

	assert.Equal(t, active, reg.Lookup(active.ID.String()))
	assert.Equal(t, historical, reg.Lookup(historical.ID.String()))
	assert.Nil(t, reg.Lookup("not-a-uuid"))
}

func TestActivateDoneMovesToHistory(t *testing.T) {
	reg := New()
	run := newTestRun("r1")
	reg.SetActive(run)
	reg.ActivateDone()

	assert.Nil(t, reg.Active())
	require.Len(t, reg.History(), 1)
	assert.Equal(t, run.ID, reg.History()[0].ID)
}

func TestDeleteRefusesActive(t *testing.T) {
	reg := New()
	run := newTestRun("r1")
	reg.SetActive(run)

	err := reg.Delete(run.ID.String())
	assert.ErrorIs(t, err, ErrCannotDeleteActive)
}

func TestDeleteRemovesFromHistory(t *testing.T) {
	reg := New()
	run := newTestRun("r1")
	reg.Append(run)

	require.NoError(t, reg.Delete(run.ID.String()))
	assert.Empty(t, reg.History())
}

func TestDeleteInvalidUUIDIsNotError(t *testing.T) {
	reg := New()
	assert.NoError(t, reg.Delete("not-a-uuid"))
}

func TestAllOrdersHistoryThenActive(t *testing.T) {
	reg := New()
	h := newTestRun("h")
	reg.Append(h)
	a := newTestRun("a")
	reg.SetActive(a)

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, h.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)
}
