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

// Package agentsession owns the single connected Agent peer: it decodes
// inbound event/breakpoint/commit frames, drives the Coordinator's state
// machine, and is the only sender of outbound breakpoint releases.
package agentsession

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teradata-labs/loomdbg/internal/codec"
	"github.com/teradata-labs/loomdbg/internal/coordinator"
	"github.com/teradata-labs/loomdbg/internal/log"
	"github.com/teradata-labs/loomdbg/internal/model"
)

// Session wraps one agent websocket connection, serializing writes and
// dispatching reads to the Coordinator.
type Session struct {
	conn  *websocket.Conn
	coord *coordinator.Coordinator

	writeMu sync.Mutex
}

// New attaches a fresh Session to coord. It returns coordinator.ErrConcurrencyConflict
// if an agent is already connected; the caller must close conn in that case.
func New(conn *websocket.Conn, coord *coordinator.Coordinator) (*Session, error) {
	s := &Session{conn: conn, coord: coord}
	if err := coord.AttachAgent(s); err != nil {
		return nil, err
	}
	return s, nil
}

// SendBreakpoint implements coordinator.AgentSink: it is the sole outbound
// message kind the core sends to the agent.
func (s *Session) SendBreakpoint(bp *model.Breakpoint) error {
	raw, err := codec.EncodeBreakpoint(bp)
	if err != nil {
		return fmt.Errorf("encode breakpoint release: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// Serve runs the inbound read loop until the connection closes or a
// ProtocolViolation/MalformedMessage forces teardown. It always detaches
// the agent from the coordinator before returning, ending the active run.
func (s *Session) Serve(ctx context.Context) error {
	defer s.coord.DetachAgent(s)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn("agent transport error", zap.Error(err))
			}
			return nil
		}

		msg, err := codec.DecodeAgentMessage(raw)
		if err != nil {
			log.Warn("malformed agent message, closing agent", zap.Error(err))
			return err
		}

		if err := s.dispatch(ctx, msg); err != nil {
			log.Warn("protocol violation from agent, closing agent", zap.Error(err))
			return err
		}
	}
}

func (s *Session) dispatch(ctx context.Context, msg *codec.AgentMessage) error {
	switch msg.Kind {
	case codec.AgentMsgEvent:
		return s.handleEvent(ctx, msg.Event)
	case codec.AgentMsgBreakpoint:
		return s.coord.HandleBreakpoint(ctx, msg.Breakpoint)
	case codec.AgentMsgCommit:
		if msg.Commit == nil {
			return errors.New("nil commit payload")
		}
		return s.coord.HandleCommit(*msg.Commit)
	default:
		return fmt.Errorf("unhandled agent message kind %q", msg.Kind)
	}
}

func (s *Session) handleEvent(_ context.Context, ev *model.Event) error {
	if ev.Type == model.EventProgramStarted {
		programName, _ := ev.Data.(string)
		if _, err := s.coord.HandleProgramStarted(programName); err != nil {
			return err
		}
	}
	return s.coord.HandleEvent(ev)
}
