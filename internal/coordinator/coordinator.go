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

// Package coordinator implements the run-execution state machine that
// mediates between one Agent peer and at most one UI peer. It owns the
// single mutex through which both sessions funnel every state mutation:
// execution state, agent sub-state, the active run, the run registry and
// the pending-breakpoint rendezvous.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/loomdbg/internal/codec"
	"github.com/teradata-labs/loomdbg/internal/log"
	"github.com/teradata-labs/loomdbg/internal/message"
	"github.com/teradata-labs/loomdbg/internal/model"
	"github.com/teradata-labs/loomdbg/internal/registry"
	"github.com/teradata-labs/loomdbg/internal/summarizer"
	"github.com/teradata-labs/loomdbg/internal/versiongate"
)

// timeNow is a var so tests can pin run start times deterministically.
var timeNow = time.Now

// Sentinel domain errors, surfaced to sessions to decide teardown policy.
var (
	ErrProtocolViolation   = errors.New("protocol violation")
	ErrConcurrencyConflict = errors.New("peer already connected")
	ErrNotFound            = errors.New("run not found")
	ErrIncompatibleVersion = errors.New("incompatible run version")
)

// ErrCannotDeleteActive is re-exported from registry so callers need not
// import it directly.
var ErrCannotDeleteActive = registry.ErrCannotDeleteActive

// AgentSink is the outbound half of the Agent Session: the single message
// the core ever sends to the agent is a breakpoint release.
type AgentSink interface {
	SendBreakpoint(bp *model.Breakpoint) error
}

// UISink is the outbound half of the UI Session.
type UISink interface {
	Send(raw []byte) error
}

// RunLogger persists a finished run for operator inspection; failures are
// logged but never block the disconnect path.
type RunLogger interface {
	WriteRun(run *model.Run) error
}

// Coordinator is the single owning struct for coordinator state. All
// mutation is funneled through its exported methods, each of which holds
// mu for the duration of its bookkeeping.
type Coordinator struct {
	mu sync.Mutex

	execState  model.ExecutionState
	agentState model.AgentState

	registry *registry.Registry

	pendingBreakpoint *model.Breakpoint

	ui         UISink
	agent      AgentSink
	summarizer summarizer.Summarizer
	runLogger  RunLogger

	requiredVersion string
}

// New builds an idle Coordinator. sum and logger may be nil, in which case
// summarization is skipped and run logging is a no-op.
func New(sum summarizer.Summarizer, logger RunLogger) *Coordinator {
	if sum == nil {
		sum = summarizer.NoopSummarizer{}
	}
	return &Coordinator{
		execState:       model.ExecutionIdle,
		agentState:      model.AgentFinishedState,
		registry:        registry.New(),
		summarizer:      sum,
		runLogger:       logger,
		requiredVersion: versiongate.ServerVersion,
	}
}

// Registry exposes the run registry for preload/import callers.
func (c *Coordinator) Registry() *registry.Registry { return c.registry }

// Snapshot is the immutable view of coordinator state a UI session needs
// to build its init_app_state payload.
type Snapshot struct {
	Runs       []*model.Run
	ActiveRun  *model.Run
	ExecState  model.ExecutionState
	AgentState model.AgentState
	HaltedAt   *uuid.UUID
}

// Snapshot returns the current state under lock.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	var halted *uuid.UUID
	if c.pendingBreakpoint != nil {
		id := c.pendingBreakpoint.ID
		halted = &id
	}
	return Snapshot{
		Runs:       c.registry.All(),
		ActiveRun:  c.registry.Active(),
		ExecState:  c.execState,
		AgentState: c.agentState,
		HaltedAt:   halted,
	}
}

// AttachAgent installs sink as the connected agent, refusing a second
// connection while one is live.
func (c *Coordinator) AttachAgent(sink AgentSink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agent != nil {
		return ErrConcurrencyConflict
	}
	c.agent = sink
	return nil
}

// AttachUI installs sink as the connected UI, refusing a second connection
// while one is live.
func (c *Coordinator) AttachUI(sink UISink) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ui != nil {
		return ErrConcurrencyConflict
	}
	c.ui = sink
	return nil
}

// DetachUI drops the UI reference; the coordinator continues running.
func (c *Coordinator) DetachUI(sink UISink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ui == sink {
		c.ui = nil
	}
}

// DetachAgent ends the active run (if any) and drops the agent reference.
func (c *Coordinator) DetachAgent(sink AgentSink) {
	c.mu.Lock()
	run := c.registry.Active()
	if run == nil {
		if c.agent == sink {
			c.agent = nil
		}
		c.mu.Unlock()
		return
	}

	finish := model.NewEvent(model.EventProgramFinished)
	bp := model.NewBreakpoint(run.ProgramName, nil, finish.ID)
	bp.Summary = "Agent execution finished."
	finish.AddBreakpoint(bp)
	run.AddEvent(finish)

	c.registry.ActivateDone()
	c.pendingBreakpoint = nil
	c.execState = model.ExecutionIdle
	c.agentState = model.AgentFinishedState
	if c.agent == sink {
		c.agent = nil
	}
	ui := c.ui
	c.mu.Unlock()

	if c.runLogger != nil {
		if err := c.runLogger.WriteRun(run); err != nil {
			log.Warn("failed to persist finished run", zap.Error(err))
		}
	}
	c.broadcastRunState(ui, run.ID, model.ExecutionIdle, model.AgentFinishedState, nil)
}

func (c *Coordinator) broadcastRunState(ui UISink, runID uuid.UUID, state model.ExecutionState, agentState model.AgentState, haltedAt *uuid.UUID) {
	if ui == nil {
		return
	}
	raw, err := codec.EncodeUpdateRunState(runID, state, agentState, haltedAt)
	if err != nil {
		log.Warn("failed to encode update_run_state", zap.Error(err))
		return
	}
	if err := ui.Send(raw); err != nil {
		log.Warn("failed to send update_run_state", zap.Error(err))
	}
}

// HandleProgramStarted begins a new run for a PROGRAM_STARTED event. The
// caller (Agent Session) is still responsible for appending ev to the new
// active run afterward via HandleEvent's normal path; this only performs
// the state transition and run creation.
func (c *Coordinator) HandleProgramStarted(programName string) (*model.Run, error) {
	c.mu.Lock()
	if c.registry.Active() != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: program_started with an active run", ErrProtocolViolation)
	}
	n := c.registry.CountByProgram(programName) + 1
	run := model.NewRun(fmt.Sprintf("Run #%d of %s", n, programName), programName, timeNow(), c.requiredVersion)
	c.registry.SetActive(run)
	c.execState = model.ExecutionStep
	c.agentState = model.AgentRunning
	ui := c.ui
	c.mu.Unlock()

	if ui != nil {
		if raw, err := codec.EncodeNewRun(run, model.ExecutionStep, model.AgentRunning); err == nil {
			_ = ui.Send(raw)
		}
		c.broadcastRunState(ui, run.ID, model.ExecutionStep, model.AgentRunning, nil)
	}
	return run, nil
}

// HandleEvent appends ev to the active run. debug_message events are also
// pushed to the UI as a transcript Message.
func (c *Coordinator) HandleEvent(ev *model.Event) error {
	c.mu.Lock()
	run := c.registry.Active()
	if run == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: event with no active run", ErrProtocolViolation)
	}
	run.AddEvent(ev)
	ui := c.ui
	runID := run.ID
	c.mu.Unlock()

	if ui != nil && ev.Type == model.EventDebugMessage {
		if raw, err := codec.EncodeNewMessage(runID, message.FromDebugEvent(ev)); err == nil {
			_ = ui.Send(raw)
		}
	}
	return nil
}

// HandleBreakpoint processes an inbound breakpoint: validation, append,
// optional summarization, then the execution_state-dependent transition.
// ctx bounds the summarizer call only.
func (c *Coordinator) HandleBreakpoint(ctx context.Context, bp *model.Breakpoint) error {
	c.mu.Lock()
	run := c.registry.Active()
	if run == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: breakpoint with no active run", ErrProtocolViolation)
	}
	ev, ok := run.EventByID(bp.EventID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: breakpoint for unknown event %s", ErrProtocolViolation, bp.EventID)
	}
	ev.AddBreakpoint(bp)
	needsSummary := bp.Summary == ""
	c.mu.Unlock()

	if needsSummary {
		// Stateless external call, performed outside the lock. A single
		// agent connection processes breakpoints one at a time, so
		// ordering is preserved.
		text, err := summarizer.SummarizeBreakpoint(ctx, c.summarizer, run, ev, bp)
		if err != nil {
			log.Warn("summarization failed", zap.String("breakpoint", bp.ID.String()), zap.Error(err))
		} else if text != "" {
			bp.Summary = text
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transitionOnBreakpointLocked(run, ev, bp)
}

func (c *Coordinator) transitionOnBreakpointLocked(run *model.Run, ev *model.Event, bp *model.Breakpoint) error {
	ui := c.ui
	agent := c.agent

	switch c.execState {
	case model.ExecutionStep:
		c.execState = model.ExecutionHalted
		c.agentState = model.AgentHalted
		c.pendingBreakpoint = bp
		c.notifyBreakpointLocked(ui, run, ev, bp)
	case model.ExecutionContinue:
		c.agentState = model.NextAgentState(ev, bp)
		if agent != nil {
			if err := agent.SendBreakpoint(bp); err != nil {
				log.Warn("failed to release breakpoint", zap.Error(err))
			}
		}
		c.notifyBreakpointLocked(ui, run, ev, bp)
	default:
		return fmt.Errorf("%w: breakpoint received while %s", ErrProtocolViolation, c.execState)
	}
	return nil
}

// notifyBreakpointLocked sends the new-message + update-run-state pair to
// the UI. Must be called with mu held.
func (c *Coordinator) notifyBreakpointLocked(ui UISink, run *model.Run, ev *model.Event, bp *model.Breakpoint) {
	if ui == nil {
		return
	}
	if raw, err := codec.EncodeNewMessage(run.ID, message.FromBreakpoint(bp, ev)); err == nil {
		_ = ui.Send(raw)
	}
	var haltedAt *uuid.UUID
	if c.pendingBreakpoint != nil {
		id := c.pendingBreakpoint.ID
		haltedAt = &id
	}
	if raw, err := codec.EncodeUpdateRunState(run.ID, c.execState, c.agentState, haltedAt); err == nil {
		_ = ui.Send(raw)
	}
}

// HandleCommit appends c to the active run's commits and forwards it to
// the UI.
func (c *Coordinator) HandleCommit(commit model.Commit) error {
	c.mu.Lock()
	run := c.registry.Active()
	if run == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: commit with no active run", ErrProtocolViolation)
	}
	run.AddCommit(commit)
	ui := c.ui
	runID := run.ID
	c.mu.Unlock()

	if ui != nil {
		if raw, err := codec.EncodeNewCommit(runID, commit); err == nil {
			_ = ui.Send(raw)
		}
	}
	return nil
}

// Step implements the UI `step` command. If Halted it releases the
// pending breakpoint (optionally applying data); if Continue it arms a
// halt on the next breakpoint.
func (c *Coordinator) Step(data any, hasData bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.execState {
	case model.ExecutionHalted:
		return c.releasePendingLocked(data, hasData, true)
	case model.ExecutionContinue:
		c.execState = model.ExecutionStep
		c.broadcastStateChangeLocked()
		return nil
	default:
		return nil
	}
}

// Continue implements the UI `continue` command.
func (c *Coordinator) Continue() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	run := c.registry.Active()
	if run == nil {
		return nil
	}
	if c.execState != model.ExecutionStep && c.execState != model.ExecutionHalted {
		return nil
	}
	if c.execState == model.ExecutionHalted {
		// The final Continue state is broadcast below; releasing must not
		// emit its own transient update_run_state.
		if err := c.releasePendingLocked(nil, false, false); err != nil {
			return err
		}
	}
	c.execState = model.ExecutionContinue
	c.broadcastStateChangeLocked()
	return nil
}

// Halt implements the UI `halt` command.
func (c *Coordinator) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.execState != model.ExecutionContinue {
		return nil
	}
	c.execState = model.ExecutionStep
	if c.pendingBreakpoint != nil {
		c.agentState = model.AgentHalted
	} else {
		c.agentState = model.AgentHalting
	}
	c.broadcastStateChangeLocked()
	return nil
}

// releasePendingLocked applies data (if provided) to the pending
// breakpoint, releases it to the agent, advances execState to Step and
// recomputes agentState. Every transition sends exactly one
// update_run_state; callers that broadcast a further state change of
// their own pass broadcast=false. Must be called with mu held.
func (c *Coordinator) releasePendingLocked(data any, hasData, broadcast bool) error {
	bp := c.pendingBreakpoint
	if bp == nil {
		return nil
	}
	run := c.registry.Active()
	if run == nil {
		return fmt.Errorf("%w: halted with no active run", ErrProtocolViolation)
	}
	ev, ok := run.EventByID(bp.EventID)
	if !ok {
		return fmt.Errorf("%w: pending breakpoint for unknown event", ErrProtocolViolation)
	}
	if hasData {
		bp.SetModifiedData(data)
	}
	if c.agent != nil {
		if err := c.agent.SendBreakpoint(bp); err != nil {
			log.Warn("failed to release breakpoint", zap.Error(err))
		}
	}
	c.execState = model.ExecutionStep
	c.agentState = model.NextAgentState(ev, bp)
	c.pendingBreakpoint = nil
	if broadcast {
		c.broadcastStateChangeLocked()
	}
	return nil
}

func (c *Coordinator) broadcastStateChangeLocked() {
	run := c.registry.Active()
	if run == nil || c.ui == nil {
		return
	}
	var haltedAt *uuid.UUID
	if c.pendingBreakpoint != nil {
		id := c.pendingBreakpoint.ID
		haltedAt = &id
	}
	if raw, err := codec.EncodeUpdateRunState(run.ID, c.execState, c.agentState, haltedAt); err == nil {
		_ = c.ui.Send(raw)
	}
}

// UpdateMessageContent implements `update_msg_content`: sets the pending
// breakpoint's ModifiedData when messageID matches it. No broadcast.
func (c *Coordinator) UpdateMessageContent(messageID uuid.UUID, content any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingBreakpoint == nil || c.pendingBreakpoint.ID != messageID {
		return nil
	}
	c.pendingBreakpoint.SetModifiedData(content)
	return nil
}

// RenameRun implements `rename_run`.
func (c *Coordinator) RenameRun(runID string, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	run := c.registry.Lookup(runID)
	if run == nil {
		return ErrNotFound
	}
	run.Name = name
	return nil
}

// DeleteRun implements `delete_run`.
func (c *Coordinator) DeleteRun(runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registry.Lookup(runID) == nil {
		return ErrNotFound
	}
	return c.registry.Delete(runID)
}

// LookupRun implements the read path shared by `download_run_request`.
func (c *Coordinator) LookupRun(runID string) (*model.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run := c.registry.Lookup(runID)
	if run == nil {
		return nil, ErrNotFound
	}
	return run, nil
}

// ImportRun checks an already decoded run against the version gate and
// appends it to history. The run's fresh identity is assigned when it is
// decoded (codec.RunFromBytes), not here.
func (c *Coordinator) ImportRun(run *model.Run) error {
	if !versiongate.IsCompatible(c.requiredVersion, run.ServerVersion) {
		return fmt.Errorf("%w: run version %s incompatible with %s", ErrIncompatibleVersion, run.ServerVersion, c.requiredVersion)
	}
	c.mu.Lock()
	c.registry.Append(run)
	ui := c.ui
	c.mu.Unlock()

	if ui != nil {
		if raw, err := codec.EncodeNewRun(run, model.ExecutionIdle, model.AgentFinishedState); err == nil {
			_ = ui.Send(raw)
		}
	}
	return nil
}

// PreloadRun appends run directly to history without touching execution
// state, used for --runs file preloads at startup.
func (c *Coordinator) PreloadRun(run *model.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Append(run)
}
