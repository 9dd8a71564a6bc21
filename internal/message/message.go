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
// Package message builds the UI-facing projection of breakpoints and debug
// events: a chat-like transcript of who sent what to whom.
package message

import (
	"time"

	"github.com/google/uuid"

	"github.com/teradata-labs/loomdbg/internal/model"
)

// Participant identifies one of the conceptual actors shown in the UI transcript.
type Participant string

const (
	ParticipantLLM    Participant = "LLM"
	ParticipantCore   Participant = "Core"
	ParticipantTools  Participant = "Tools"
	ParticipantSystem Participant = "System"
)

// ContentType tags whether a Message's Content is a JSON value or plain text.
type ContentType string

const (
	ContentJSON ContentType = "json"
	ContentText ContentType = "text"
)

// Message is a single transcript entry derived from a breakpoint or debug event.
type Message struct {
	ID          uuid.UUID
	From        Participant
	To          Participant
	Summary     string
	ContentType ContentType
	Content     any
	SentAt      time.Time
}

// FromDebugEvent builds the transcript entry for a DEBUG_MESSAGE event.
func FromDebugEvent(ev *model.Event) Message {
	return Message{
		ID:          ev.ID,
		From:        ParticipantSystem,
		To:          ParticipantSystem,
		ContentType: ContentText,
		Content:     ev.Data,
		SentAt:      ev.CreatedAt,
	}
}

// FromBreakpoint builds the transcript entry for bp, attributing sender and
// recipient from whether bp begins or ends its event and the event's kind.
func FromBreakpoint(bp *model.Breakpoint, ev *model.Event) Message {
	contentType := ContentText
	if _, ok := bp.OriginalData.(map[string]any); ok {
		contentType = ContentJSON
	}
	return Message{
		ID:          bp.ID,
		From:        fromParticipant(bp, ev),
		To:          toParticipant(bp, ev),
		Summary:     bp.Summary,
		ContentType: contentType,
		Content:     bp.OriginalData,
		SentAt:      bp.CreatedAt,
	}
}

func fromParticipant(bp *model.Breakpoint, ev *model.Event) Participant {
	isEnd := ev.HasEndBreakpoint() && ev.EndBreakpoint().Equal(bp)
	switch {
	case isEnd && ev.Type == model.EventLLMQuery:
		return ParticipantLLM
	case isEnd && ev.Type == model.EventToolInvocation:
		return ParticipantTools
	case ev.Type == model.EventProgramStarted || ev.Type == model.EventProgramFinished:
		return ParticipantSystem
	default:
		return ParticipantCore
	}
}

func toParticipant(bp *model.Breakpoint, ev *model.Event) Participant {
	isBegin := ev.HasBeginBreakpoint() && ev.BeginBreakpoint().Equal(bp)
	if isBegin {
		switch ev.Type {
		case model.EventLLMQuery:
			return ParticipantLLM
		case model.EventToolInvocation:
			return ParticipantTools
		}
	}
	if ev.Type == model.EventProgramStarted || ev.Type == model.EventProgramFinished {
		return ParticipantSystem
	}
	return ParticipantCore
}

// FromEvent derives the transcript entries carried by a single event: one
// per breakpoint, or a single debug-message entry, or none.
func FromEvent(ev *model.Event) []Message {
	if len(ev.Breakpoints) > 0 {
		msgs := make([]Message, 0, len(ev.Breakpoints))
		for _, bp := range ev.Breakpoints {
			msgs = append(msgs, FromBreakpoint(bp, ev))
		}
		return msgs
	}
	if ev.Type == model.EventDebugMessage {
		return []Message{FromDebugEvent(ev)}
	}
	return nil
}

// FromEvents derives transcript entries for every event, in event and
// breakpoint order.
func FromEvents(events []*model.Event) []Message {
	var msgs []Message
	for _, ev := range events {
		msgs = append(msgs, FromEvent(ev)...)
	}
	return msgs
}
