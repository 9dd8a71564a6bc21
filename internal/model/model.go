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
// Package model provides the domain types of the debugger coordinator:
// events, breakpoints, commits and runs.
package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of a semantic step in agent execution.
type EventType string

const (
	EventProgramStarted  EventType = "PROGRAM_STARTED"
	EventProgramFinished EventType = "PROGRAM_FINISHED"
	EventLLMQuery        EventType = "LLM_QUERY"
	EventToolInvocation  EventType = "TOOL_INVOCATION"
	EventDebugMessage    EventType = "DEBUG_MESSAGE"
)

// ExecutionState is the coordinator's run-execution state.
type ExecutionState string

const (
	ExecutionIdle     ExecutionState = "idle"
	ExecutionContinue ExecutionState = "continue"
	ExecutionStep     ExecutionState = "step"
	ExecutionHalted   ExecutionState = "halted"
)

// AgentState is the human-readable sub-state of the agent within a run.
type AgentState string

const (
	AgentRunning       AgentState = "Agent running..."
	LLMThinking        AgentState = "LLM thinking..."
	ToolExecuting      AgentState = "Tool executing..."
	AgentHalted        AgentState = "Halted at breakpoint..."
	AgentHalting       AgentState = "Halting at breakpoint..."
	AgentFinishedState AgentState = "Agent finished..."
)

// Breakpoint is one suspension point within an event. Its effective payload
// is ModifiedData if set, else OriginalData. Equality is by ID only.
type Breakpoint struct {
	ID           uuid.UUID
	Agent        string
	EventID      uuid.UUID
	CreatedAt    time.Time
	Summary      string
	OriginalData any
	ModifiedData any
	hasModified  bool
}

// NewBreakpoint creates a breakpoint tied to eventID, originated by agent,
// carrying data as its original payload. Canonical constructor order is
// (agent, data, eventID).
func NewBreakpoint(agent string, data any, eventID uuid.UUID) *Breakpoint {
	return &Breakpoint{
		ID:           uuid.New(),
		Agent:        agent,
		EventID:      eventID,
		CreatedAt:    time.Now(),
		OriginalData: data,
	}
}

// Data returns the effective payload: ModifiedData if one was ever set
// (including explicitly to nil), else OriginalData.
func (b *Breakpoint) Data() any {
	if b.hasModified {
		return b.ModifiedData
	}
	return b.OriginalData
}

// SetModifiedData records an explicit modification to the breakpoint's
// payload, distinguishing "never touched" from "touched with nil".
func (b *Breakpoint) SetModifiedData(data any) {
	b.ModifiedData = data
	b.hasModified = true
}

// Equal reports whether two breakpoints share the same identity.
func (b *Breakpoint) Equal(other *Breakpoint) bool {
	if b == nil || other == nil {
		return false
	}
	return b.ID == other.ID
}

// Event is a semantic step in agent execution. LLMQuery and ToolInvocation
// events take exactly two breakpoints (begin, end); ProgramStarted and
// ProgramFinished take exactly one; DebugMessage takes none.
type Event struct {
	ID          uuid.UUID
	Type        EventType
	CreatedAt   time.Time
	Data        any
	Breakpoints []*Breakpoint
}

// NewEvent creates an event of the given type with fresh identity.
func NewEvent(t EventType) *Event {
	return &Event{
		ID:        uuid.New(),
		Type:      t,
		CreatedAt: time.Now(),
	}
}

// HasBeginBreakpoint reports whether the event has recorded its first breakpoint.
func (e *Event) HasBeginBreakpoint() bool { return len(e.Breakpoints) >= 1 }

// HasEndBreakpoint reports whether the event has recorded a second breakpoint.
func (e *Event) HasEndBreakpoint() bool { return len(e.Breakpoints) >= 2 }

// BeginBreakpoint returns the first breakpoint, or nil if none arrived yet.
func (e *Event) BeginBreakpoint() *Breakpoint {
	if e.HasBeginBreakpoint() {
		return e.Breakpoints[0]
	}
	return nil
}

// EndBreakpoint returns the last breakpoint if a second one has arrived, else nil.
func (e *Event) EndBreakpoint() *Breakpoint {
	if e.HasEndBreakpoint() {
		return e.Breakpoints[len(e.Breakpoints)-1]
	}
	return nil
}

// AddBreakpoint appends bp to the event's breakpoint list.
func (e *Event) AddBreakpoint(bp *Breakpoint) {
	e.Breakpoints = append(e.Breakpoints, bp)
}

// ChangeType classifies a file-level modification within a commit.
type ChangeType string

const (
	ChangeModified ChangeType = "change"
	ChangeNewFile  ChangeType = "new file"
	ChangeDeleted  ChangeType = "deleted file"
)

// Change is a single file-level modification within a Commit.
type Change struct {
	Path            string
	ChangeType      ChangeType
	Diff            string
	Content         string
	PreviousContent string
}

// Commit is a snapshot of agent-authored changes, equal by ID.
type Commit struct {
	ID      string
	Date    time.Time
	Title   string
	Changes []Change
}

// Run is one start-to-finish execution of an agent program.
type Run struct {
	ID            uuid.UUID
	Name          string
	ProgramName   string
	StartTime     time.Time
	Events        map[uuid.UUID]*Event
	EventOrder    []uuid.UUID
	Commits       []Commit
	ServerVersion string
}

// NewRun creates a run with fresh identity, stamped with serverVersion.
func NewRun(name, programName string, startTime time.Time, serverVersion string) *Run {
	return &Run{
		ID:            uuid.New(),
		Name:          name,
		ProgramName:   programName,
		StartTime:     startTime,
		Events:        make(map[uuid.UUID]*Event),
		ServerVersion: serverVersion,
	}
}

// AddEvent records ev in the run's event map, preserving arrival order.
func (r *Run) AddEvent(ev *Event) {
	if _, exists := r.Events[ev.ID]; !exists {
		r.EventOrder = append(r.EventOrder, ev.ID)
	}
	r.Events[ev.ID] = ev
}

// AddCommit appends c to the run's commit history.
func (r *Run) AddCommit(c Commit) {
	r.Commits = append(r.Commits, c)
}

// EventByID returns the event with the given id, or ok=false if absent.
func (r *Run) EventByID(id uuid.UUID) (*Event, bool) {
	ev, ok := r.Events[id]
	return ev, ok
}

// OrderedEvents returns the run's events in arrival order.
func (r *Run) OrderedEvents() []*Event {
	events := make([]*Event, 0, len(r.EventOrder))
	for _, id := range r.EventOrder {
		if ev, ok := r.Events[id]; ok {
			events = append(events, ev)
		}
	}
	return events
}

// PreviousLLMQueries returns LLM_QUERY events that happened strictly
// before the given event, sorted ascending by time. If before is nil,
// all LLM_QUERY events are returned in that order. Used by the
// summarizer to build prompt context.
func (r *Run) PreviousLLMQueries(before *Event) []*Event {
	var queries []*Event
	for _, ev := range r.Events {
		if ev.Type != EventLLMQuery {
			continue
		}
		if before != nil && !ev.CreatedAt.Before(before.CreatedAt) {
			continue
		}
		queries = append(queries, ev)
	}
	sort.Slice(queries, func(i, j int) bool {
		return queries[i].CreatedAt.Before(queries[j].CreatedAt)
	})
	return queries
}

// NextAgentState returns the agent sub-state that follows releasing bp of
// event e: LlmThinking/ToolExecuting if bp is the begin breakpoint of a
// query/tool event, else AgentRunning.
func NextAgentState(e *Event, bp *Breakpoint) AgentState {
	if e.BeginBreakpoint().Equal(bp) {
		switch e.Type {
		case EventLLMQuery:
			return LLMThinking
		case EventToolInvocation:
			return ToolExecuting
		}
	}
	return AgentRunning
}
