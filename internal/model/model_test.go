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
package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpointData(t *testing.T) {
	bp := NewBreakpoint("agent-a", "hi", uuid.New())
	assert.Equal(t, "hi", bp.Data())

	bp.SetModifiedData("hello")
	assert.Equal(t, "hello", bp.Data())

	bp.SetModifiedData(nil)
	assert.Nil(t, bp.Data(), "explicit nil modification must still be the effective payload")
}

func TestBreakpointEquality(t *testing.T) {
	eventID := uuid.New()
	a := NewBreakpoint("a", "x", eventID)
	b := NewBreakpoint("a", "x", eventID)
	assert.False(t, a.Equal(b), "distinct breakpoints never share an id")
	assert.True(t, a.Equal(a))
}

func TestEventBreakpointPairing(t *testing.T) {
	ev := NewEvent(EventLLMQuery)
	require.False(t, ev.HasBeginBreakpoint())
	require.False(t, ev.HasEndBreakpoint())

	begin := NewBreakpoint("a", "request", ev.ID)
	ev.AddBreakpoint(begin)
	assert.True(t, ev.HasBeginBreakpoint())
	assert.False(t, ev.HasEndBreakpoint())
	assert.True(t, ev.BeginBreakpoint().Equal(begin))
	assert.Nil(t, ev.EndBreakpoint())

	end := NewBreakpoint("a", "response", ev.ID)
	ev.AddBreakpoint(end)
	assert.True(t, ev.HasEndBreakpoint())
	assert.True(t, ev.EndBreakpoint().Equal(end))
}

func TestNextAgentState(t *testing.T) {
	ev := NewEvent(EventLLMQuery)
	begin := NewBreakpoint("a", "req", ev.ID)
	ev.AddBreakpoint(begin)

	assert.Equal(t, LLMThinking, NextAgentState(ev, begin))

	end := NewBreakpoint("a", "resp", ev.ID)
	ev.AddBreakpoint(end)
	assert.Equal(t, AgentRunning, NextAgentState(ev, end))

	tool := NewEvent(EventToolInvocation)
	toolBegin := NewBreakpoint("a", "call", tool.ID)
	tool.AddBreakpoint(toolBegin)
	assert.Equal(t, ToolExecuting, NextAgentState(tool, toolBegin))
}

func TestRunAddEventPreservesOrder(t *testing.T) {
	run := NewRun("Run #1 of demo", "demo", time.Now(), "v1.0.0")
	e1 := NewEvent(EventDebugMessage)
	e2 := NewEvent(EventDebugMessage)
	run.AddEvent(e1)
	run.AddEvent(e2)

	ordered := run.OrderedEvents()
	require.Len(t, ordered, 2)
	assert.Equal(t, e1.ID, ordered[0].ID)
	assert.Equal(t, e2.ID, ordered[1].ID)
}

func TestRunPreviousLLMQueries(t *testing.T) {
	run := NewRun("r", "demo", time.Now(), "v1.0.0")
	q1 := NewEvent(EventLLMQuery)
	q1.CreatedAt = time.Now().Add(-2 * time.Minute)
	q2 := NewEvent(EventLLMQuery)
	q2.CreatedAt = time.Now().Add(-1 * time.Minute)
	q3 := NewEvent(EventLLMQuery)
	q3.CreatedAt = time.Now()
	run.AddEvent(q1)
	run.AddEvent(q2)
	run.AddEvent(q3)

	before := q3
	prev := run.PreviousLLMQueries(before)
	require.Len(t, prev, 2)
	assert.Equal(t, q1.ID, prev[0].ID)
	assert.Equal(t, q2.ID, prev[1].ID)

	assert.Len(t, run.PreviousLLMQueries(nil), 3)
}
