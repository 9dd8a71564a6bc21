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
// Package codec encodes and decodes the JSON envelopes exchanged with the
// Agent and UI peers.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teradata-labs/loomdbg/internal/model"
)

// ErrMalformedMessage is returned for JSON errors, missing data/content,
// or an unrecognized message/event kind.
var ErrMalformedMessage = fmt.Errorf("malformed message")

// AgentMessageKind is the "message" discriminator of the Agent<->Core envelope.
type AgentMessageKind string

const (
	AgentMsgEvent      AgentMessageKind = "event"
	AgentMsgBreakpoint AgentMessageKind = "breakpoint"
	AgentMsgCommit     AgentMessageKind = "commit"
)

type agentEnvelope struct {
	Message AgentMessageKind `json:"message"`
	Data    json.RawMessage  `json:"data"`
}

type wireBreakpoint struct {
	UUID         uuid.UUID `json:"uuid"`
	Agent        string    `json:"agent"`
	EventID      uuid.UUID `json:"event_id"`
	Time         int64     `json:"time"`
	OriginalData any       `json:"original_data"`
	ModifiedData any       `json:"modified_data"`
	Summary      string    `json:"summary"`
}

type wireEvent struct {
	UUID        uuid.UUID        `json:"uuid"`
	Type        model.EventType  `json:"type"`
	Time        int64            `json:"time"`
	Data        any              `json:"data"`
	Breakpoints []wireBreakpoint `json:"breakpoints"`
}

type wireChange struct {
	Path            string           `json:"path"`
	ChangeType      model.ChangeType `json:"change_type"`
	Diff            string           `json:"diff"`
	Content         string           `json:"content"`
	PreviousContent string           `json:"previous_content"`
}

type wireCommit struct {
	ID      string       `json:"id"`
	Date    int64        `json:"date"`
	Title   string       `json:"title"`
	Changes []wireChange `json:"changes"`
}

func toWireBreakpoint(bp *model.Breakpoint) wireBreakpoint {
	return wireBreakpoint{
		UUID:         bp.ID,
		Agent:        bp.Agent,
		EventID:      bp.EventID,
		Time:         bp.CreatedAt.Unix(),
		OriginalData: bp.OriginalData,
		ModifiedData: bp.ModifiedData,
		Summary:      bp.Summary,
	}
}

func fromWireBreakpoint(w wireBreakpoint) *model.Breakpoint {
	bp := model.NewBreakpoint(w.Agent, w.OriginalData, w.EventID)
	bp.ID = w.UUID
	bp.CreatedAt = unixTime(w.Time)
	bp.Summary = w.Summary
	if w.ModifiedData != nil {
		bp.SetModifiedData(w.ModifiedData)
	}
	return bp
}

func toWireEvent(ev *model.Event) wireEvent {
	w := wireEvent{
		UUID: ev.ID,
		Type: ev.Type,
		Time: ev.CreatedAt.Unix(),
		Data: ev.Data,
	}
	for _, bp := range ev.Breakpoints {
		w.Breakpoints = append(w.Breakpoints, toWireBreakpoint(bp))
	}
	return w
}

func fromWireEvent(w wireEvent) *model.Event {
	ev := model.NewEvent(w.Type)
	ev.ID = w.UUID
	ev.CreatedAt = unixTime(w.Time)
	ev.Data = w.Data
	for _, wbp := range w.Breakpoints {
		ev.AddBreakpoint(fromWireBreakpoint(wbp))
	}
	return ev
}

func toWireCommit(c model.Commit) wireCommit {
	w := wireCommit{ID: c.ID, Date: c.Date.Unix(), Title: c.Title}
	for _, ch := range c.Changes {
		w.Changes = append(w.Changes, wireChange{
			Path:            ch.Path,
			ChangeType:      ch.ChangeType,
			Diff:            ch.Diff,
			Content:         ch.Content,
			PreviousContent: ch.PreviousContent,
		})
	}
	return w
}

func fromWireCommit(w wireCommit) model.Commit {
	c := model.Commit{ID: w.ID, Date: unixTime(w.Date), Title: w.Title}
	for _, wc := range w.Changes {
		c.Changes = append(c.Changes, model.Change{
			Path:            wc.Path,
			ChangeType:      wc.ChangeType,
			Diff:            wc.Diff,
			Content:         wc.Content,
			PreviousContent: wc.PreviousContent,
		})
	}
	return c
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

// EncodeEvent builds the agent-facing `{"message":"event", "data":...}` envelope.
func EncodeEvent(ev *model.Event) ([]byte, error) {
	return marshalEnvelope(AgentMsgEvent, toWireEvent(ev))
}

// EncodeBreakpoint builds the agent-facing breakpoint-release envelope.
func EncodeBreakpoint(bp *model.Breakpoint) ([]byte, error) {
	return marshalEnvelope(AgentMsgBreakpoint, toWireBreakpoint(bp))
}

// EncodeCommit builds the agent-facing commit envelope.
func EncodeCommit(c model.Commit) ([]byte, error) {
	return marshalEnvelope(AgentMsgCommit, toWireCommit(c))
}

func marshalEnvelope(kind AgentMessageKind, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return json.Marshal(agentEnvelope{Message: kind, Data: data})
}

// AgentMessage is a decoded inbound Agent<->Core message: exactly one of
// Event, Breakpoint, Commit is set, matching Kind.
type AgentMessage struct {
	Kind       AgentMessageKind
	Event      *model.Event
	Breakpoint *model.Breakpoint
	Commit     *model.Commit
}

// DecodeAgentMessage parses a raw inbound agent frame into its typed payload.
func DecodeAgentMessage(raw []byte) (*AgentMessage, error) {
	var env agentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedMessage)
	}

	switch env.Message {
	case AgentMsgEvent:
		var w wireEvent
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return &AgentMessage{Kind: AgentMsgEvent, Event: fromWireEvent(w)}, nil
	case AgentMsgBreakpoint:
		var w wireBreakpoint
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return &AgentMessage{Kind: AgentMsgBreakpoint, Breakpoint: fromWireBreakpoint(w)}, nil
	case AgentMsgCommit:
		var w wireCommit
		if err := json.Unmarshal(env.Data, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		c := fromWireCommit(w)
		return &AgentMessage{Kind: AgentMsgCommit, Commit: &c}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedMessage, env.Message)
	}
}
