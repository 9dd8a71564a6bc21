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
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teradata-labs/loomdbg/internal/message"
	"github.com/teradata-labs/loomdbg/internal/model"
)

// uiTimeLayout is the Go equivalent of the "%Y-%m-%dT%H:%M:%S%z" strftime format.
const uiTimeLayout = "2006-01-02T15:04:05-0700"

// UIEventKind is the "event" discriminator of the UI<->Core envelope, used
// both for messages the core pushes to the UI and commands the UI sends back.
type UIEventKind string

const (
	UIEventError            UIEventKind = "error"
	UIEventInitAppState     UIEventKind = "init_app_state"
	UIEventNewMessage       UIEventKind = "new_message"
	UIEventNewRun           UIEventKind = "new_run"
	UIEventUpdateRunState   UIEventKind = "update_run_state"
	UIEventNewCommit        UIEventKind = "new_commit"
	UIEventRunExport        UIEventKind = "run_export"
	UIEventStep             UIEventKind = "step"
	UIEventContinue         UIEventKind = "continue"
	UIEventHalt             UIEventKind = "halt"
	UIEventRenameRun        UIEventKind = "rename_run"
	UIEventDownloadRequest  UIEventKind = "download_run_request"
	UIEventImportRun        UIEventKind = "import_run"
	UIEventUpdateMsgContent UIEventKind = "update_msg_content"
	UIEventDeleteRun        UIEventKind = "delete_run"
)

type uiEnvelope struct {
	Event   UIEventKind     `json:"event"`
	Content json.RawMessage `json:"content"`
}

func marshalUIEnvelope(kind UIEventKind, content any) ([]byte, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return json.Marshal(uiEnvelope{Event: kind, Content: data})
}

type wireMessage struct {
	UUID        uuid.UUID `json:"uuid"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Content     any       `json:"content"`
	ContentType string    `json:"contentType"`
	Summary     *string   `json:"summary"`
	SentAt      string    `json:"sentAt"`
}

func toWireMessage(m message.Message) wireMessage {
	var summary *string
	if m.Summary != "" {
		s := m.Summary
		summary = &s
	}
	return wireMessage{
		UUID:        m.ID,
		From:        string(m.From),
		To:          string(m.To),
		Content:     m.Content,
		ContentType: string(m.ContentType),
		Summary:     summary,
		SentAt:      m.SentAt.Format(uiTimeLayout),
	}
}

type wireRun struct {
	UUID        uuid.UUID            `json:"uuid"`
	Name        string               `json:"name"`
	ProgramName string               `json:"programName"`
	StartTime   string               `json:"startTime"`
	State       model.ExecutionState `json:"state"`
	AgentState  model.AgentState     `json:"agentState"`
	Commits     []wireUICommit       `json:"commits"`
	Messages    []wireMessage        `json:"messages"`
	HaltedAt    *string              `json:"haltedAt"`
}

type wireUIChange struct {
	Path            string `json:"path"`
	ChangeType      string `json:"changeType"`
	Content         string `json:"content"`
	PreviousContent string `json:"previousContent"`
}

type wireUICommit struct {
	ID      string         `json:"id"`
	Date    string         `json:"date"`
	Title   string         `json:"title"`
	Changes []wireUIChange `json:"changes"`
}

func serializeUICommit(c model.Commit) wireUICommit {
	w := wireUICommit{ID: c.ID, Date: c.Date.Format(uiTimeLayout), Title: c.Title}
	for _, ch := range c.Changes {
		w.Changes = append(w.Changes, wireUIChange{
			Path:            ch.Path,
			ChangeType:      string(ch.ChangeType),
			Content:         ch.Content,
			PreviousContent: ch.PreviousContent,
		})
	}
	return w
}

// SerializeRun builds the UI wire representation of run under the given
// execution/agent state, with haltedAt set when the run is the one halted
// at the given breakpoint id.
func SerializeRun(run *model.Run, state model.ExecutionState, agentState model.AgentState, haltedAt *uuid.UUID) json.RawMessage {
	w := wireRun{
		UUID:        run.ID,
		Name:        run.Name,
		ProgramName: run.ProgramName,
		StartTime:   run.StartTime.Format(uiTimeLayout),
		State:       state,
		AgentState:  agentState,
	}
	for _, c := range run.Commits {
		w.Commits = append(w.Commits, serializeUICommit(c))
	}
	for _, m := range message.FromEvents(run.OrderedEvents()) {
		w.Messages = append(w.Messages, toWireMessage(m))
	}
	if haltedAt != nil {
		s := haltedAt.String()
		w.HaltedAt = &s
	}
	raw, _ := json.Marshal(w)
	return raw
}

// EncodeInitAppState builds the init_app_state message sent once on UI connect.
func EncodeInitAppState(runs []json.RawMessage, activeRunID *uuid.UUID, haltedAt *uuid.UUID) ([]byte, error) {
	content := struct {
		Runs      []json.RawMessage `json:"runs"`
		ActiveRun *string           `json:"activeRun"`
		HaltedAt  *string           `json:"haltedAt"`
	}{Runs: runs}
	if activeRunID != nil {
		s := activeRunID.String()
		content.ActiveRun = &s
	}
	if haltedAt != nil {
		s := haltedAt.String()
		content.HaltedAt = &s
	}
	return marshalUIEnvelope(UIEventInitAppState, content)
}

// EncodeNewMessage builds the new_message push.
func EncodeNewMessage(runID uuid.UUID, m message.Message) ([]byte, error) {
	content := struct {
		Run     string      `json:"run"`
		Message wireMessage `json:"message"`
	}{Run: runID.String(), Message: toWireMessage(m)}
	return marshalUIEnvelope(UIEventNewMessage, content)
}

// EncodeNewRun builds the new_run push.
func EncodeNewRun(run *model.Run, state model.ExecutionState, agentState model.AgentState) ([]byte, error) {
	content := struct {
		Run json.RawMessage `json:"run"`
	}{Run: SerializeRun(run, state, agentState, nil)}
	return marshalUIEnvelope(UIEventNewRun, content)
}

// EncodeUpdateRunState builds the update_run_state push.
func EncodeUpdateRunState(runID uuid.UUID, state model.ExecutionState, agentState model.AgentState, haltedAt *uuid.UUID) ([]byte, error) {
	content := struct {
		Run        string               `json:"run"`
		State      model.ExecutionState `json:"state"`
		AgentState model.AgentState     `json:"agentState"`
		HaltedAt   *string              `json:"haltedAt"`
	}{Run: runID.String(), State: state, AgentState: agentState}
	if haltedAt != nil {
		s := haltedAt.String()
		content.HaltedAt = &s
	}
	return marshalUIEnvelope(UIEventUpdateRunState, content)
}

// EncodeNewCommit builds the new_commit push.
func EncodeNewCommit(runID uuid.UUID, c model.Commit) ([]byte, error) {
	content := struct {
		Run    string       `json:"run"`
		Commit wireUICommit `json:"commit"`
	}{Run: runID.String(), Commit: serializeUICommit(c)}
	return marshalUIEnvelope(UIEventNewCommit, content)
}

// EncodeRunExport builds the run_export response to a download request.
// data must already be base64(zlib(run bytes)).
func EncodeRunExport(name string, data string) ([]byte, error) {
	content := struct {
		Name string `json:"name"`
		Data string `json:"data"`
	}{Name: name, Data: data}
	return marshalUIEnvelope(UIEventRunExport, content)
}

// EncodeError builds the error push.
func EncodeError(msg string) ([]byte, error) {
	content := struct {
		Message string `json:"message"`
	}{Message: msg}
	return marshalUIEnvelope(UIEventError, content)
}

// UICommand is a decoded inbound UI->Core message.
type UICommand struct {
	Kind    UIEventKind
	Content json.RawMessage
}

// DecodeUICommand parses a raw inbound UI frame. Unknown kinds are reported
// as ErrMalformedMessage but callers should keep the session open.
func DecodeUICommand(raw []byte) (*UICommand, error) {
	var env uiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(env.Content) == 0 {
		return nil, fmt.Errorf("%w: missing content", ErrMalformedMessage)
	}
	switch env.Event {
	case UIEventStep, UIEventContinue, UIEventHalt, UIEventRenameRun,
		UIEventDownloadRequest, UIEventImportRun, UIEventUpdateMsgContent, UIEventDeleteRun:
		return &UICommand{Kind: env.Event, Content: env.Content}, nil
	default:
		return nil, fmt.Errorf("%w: unknown UI event %q", ErrMalformedMessage, env.Event)
	}
}

// RenameRunContent decodes the content of a rename_run command.
type RenameRunContent struct {
	Run  string `json:"run"`
	Name string `json:"name"`
}

// RunRefContent decodes the content of delete_run / download_run_request commands.
type RunRefContent struct {
	Run string `json:"run"`
}

// UpdateMsgContent decodes the content of an update_msg_content command.
type UpdateMsgContent struct {
	Message string `json:"message"`
	Content any    `json:"content"`
}

// ImportRunContent decodes the content of an import_run command.
type ImportRunContent struct {
	Data string `json:"data"`
}

// ParseTimestamp parses a UI-formatted timestamp back into time.Time.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(uiTimeLayout, s)
}
