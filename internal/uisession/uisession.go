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

// Package uisession owns the single connected UI peer: it sends the
// init_app_state snapshot on connect, forwards coordinator broadcasts, and
// decodes inbound UI commands (step/continue/halt/rename/delete/import/
// download/edit-message).
package uisession

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teradata-labs/loomdbg/internal/codec"
	"github.com/teradata-labs/loomdbg/internal/coordinator"
	"github.com/teradata-labs/loomdbg/internal/log"
	"github.com/teradata-labs/loomdbg/internal/model"
)

// Session wraps one UI websocket connection, serializing writes and
// dispatching reads to the Coordinator.
type Session struct {
	conn  *websocket.Conn
	coord *coordinator.Coordinator

	writeMu sync.Mutex
}

// New attaches a fresh Session to coord, returning
// coordinator.ErrConcurrencyConflict if a UI is already connected.
func New(conn *websocket.Conn, coord *coordinator.Coordinator) (*Session, error) {
	s := &Session{conn: conn, coord: coord}
	if err := coord.AttachUI(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Send implements coordinator.UISink.
func (s *Session) Send(raw []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

func (s *Session) sendError(msg string) {
	raw, err := codec.EncodeError(msg)
	if err != nil {
		return
	}
	if err := s.Send(raw); err != nil {
		log.Warn("failed to send error to UI", zap.Error(err))
	}
}

// Serve sends the initial snapshot, then runs the inbound read loop until
// the connection closes. A UI transport error ends this session only;
// a malformed message is logged and skipped, keeping the session open.
// Neither tears down the coordinator.
func (s *Session) Serve() error {
	defer s.coord.DetachUI(s)

	if err := s.sendInitState(); err != nil {
		log.Warn("failed to send init_app_state", zap.Error(err))
		return err
	}

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn("UI transport error", zap.Error(err))
			}
			return nil
		}

		cmd, err := codec.DecodeUICommand(raw)
		if err != nil {
			log.Warn("malformed UI message, ignoring", zap.Error(err))
			continue
		}
		s.dispatch(cmd)
	}
}

func (s *Session) sendInitState() error {
	snap := s.coord.Snapshot()
	runs := make([]json.RawMessage, 0, len(snap.Runs))
	for _, run := range snap.Runs {
		state, agentState := model.ExecutionIdle, model.AgentFinishedState
		var haltedAt *uuid.UUID
		if snap.ActiveRun != nil && run.ID == snap.ActiveRun.ID {
			state, agentState = snap.ExecState, snap.AgentState
			haltedAt = snap.HaltedAt
		}
		runs = append(runs, codec.SerializeRun(run, state, agentState, haltedAt))
	}
	var activeID *uuid.UUID
	if snap.ActiveRun != nil {
		id := snap.ActiveRun.ID
		activeID = &id
	}
	raw, err := codec.EncodeInitAppState(runs, activeID, snap.HaltedAt)
	if err != nil {
		return err
	}
	return s.Send(raw)
}

func (s *Session) dispatch(cmd *codec.UICommand) {
	var err error
	switch cmd.Kind {
	case codec.UIEventStep:
		content, decErr := decodeOptionalContent(cmd.Content)
		if decErr != nil {
			err = decErr
			break
		}
		err = s.coord.Step(content.value, content.present)
	case codec.UIEventContinue:
		err = s.coord.Continue()
	case codec.UIEventHalt:
		err = s.coord.Halt()
	case codec.UIEventUpdateMsgContent:
		var c codec.UpdateMsgContent
		if decErr := json.Unmarshal(cmd.Content, &c); decErr != nil {
			err = decErr
			break
		}
		id, parseErr := uuid.Parse(c.Message)
		if parseErr != nil {
			err = parseErr
			break
		}
		err = s.coord.UpdateMessageContent(id, c.Content)
	case codec.UIEventRenameRun:
		var c codec.RenameRunContent
		if decErr := json.Unmarshal(cmd.Content, &c); decErr != nil {
			err = decErr
			break
		}
		err = s.coord.RenameRun(c.Run, c.Name)
	case codec.UIEventDeleteRun:
		var c codec.RunRefContent
		if decErr := json.Unmarshal(cmd.Content, &c); decErr != nil {
			err = decErr
			break
		}
		err = s.coord.DeleteRun(c.Run)
	case codec.UIEventDownloadRequest:
		err = s.handleDownload(cmd.Content)
	case codec.UIEventImportRun:
		err = s.handleImport(cmd.Content)
	default:
		err = nil
	}

	if err != nil {
		log.Warn("UI command failed", zap.String("event", string(cmd.Kind)), zap.Error(err))
		s.sendError(err.Error())
	}
}

type optionalContent struct {
	value   any
	present bool
}

// decodeOptionalContent decodes a `step` command's content, which carries
// the optional replacement payload for the pending breakpoint. An empty
// frame means "release unchanged".
func decodeOptionalContent(raw []byte) (optionalContent, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return optionalContent{}, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return optionalContent{}, err
	}
	return optionalContent{value: v, present: true}, nil
}

func (s *Session) handleDownload(raw json.RawMessage) error {
	var c codec.RunRefContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	run, err := s.coord.LookupRun(c.Run)
	if err != nil {
		return err
	}
	data, err := codec.EncodeRunExportBlob(run)
	if err != nil {
		return err
	}
	out, err := codec.EncodeRunExport(run.Name, data)
	if err != nil {
		return err
	}
	return s.Send(out)
}

func (s *Session) handleImport(raw json.RawMessage) error {
	var c codec.ImportRunContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return err
	}
	run, err := codec.DecodeRunImportBlob(c.Data)
	if err != nil {
		return err
	}
	return s.coord.ImportRun(run)
}
