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
package agentsession

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/loomdbg/internal/coordinator"
	"github.com/teradata-labs/loomdbg/internal/model"
	"github.com/teradata-labs/loomdbg/internal/summarizer"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func startAgentServer(t *testing.T, coord *coordinator.Coordinator) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		sess, err := New(conn, coord)
		if err != nil {
			_ = conn.Close()
			return
		}
		go func() {
			_ = sess.Serve(context.Background())
			_ = conn.Close()
		}()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendProgramStarted(t *testing.T, conn *websocket.Conn, program string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	frame := fmt.Sprintf(
		`{"message":"event","data":{"uuid":%q,"type":"PROGRAM_STARTED","time":1700000000,"data":%q,"breakpoints":[]}}`,
		id.String(), program)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	return id
}

func sendBreakpoint(t *testing.T, conn *websocket.Conn, eventID uuid.UUID, original string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	frame := fmt.Sprintf(
		`{"message":"breakpoint","data":{"uuid":%q,"agent":"Prog","event_id":%q,"time":1700000001,"original_data":%q,"modified_data":null,"summary":""}}`,
		id.String(), eventID.String(), original)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	return id
}

func TestAgentDrivesRunLifecycle(t *testing.T) {
	coord := coordinator.New(summarizer.NoopSummarizer{}, nil)
	url := startAgentServer(t, coord)
	conn := dial(t, url)

	evID := sendProgramStarted(t, conn, "Prog")
	require.Eventually(t, func() bool {
		return coord.Registry().Active() != nil
	}, time.Second, 10*time.Millisecond)

	bpID := sendBreakpoint(t, conn, evID, "start")
	require.Eventually(t, func() bool {
		snap := coord.Snapshot()
		return snap.HaltedAt != nil && *snap.HaltedAt == bpID
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, coord.Step(nil, false))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "breakpoint", env.Message)

	var payload struct {
		UUID string `json:"uuid"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, bpID.String(), payload.UUID)
}

func TestAgentDisconnectFinalizesRun(t *testing.T) {
	coord := coordinator.New(summarizer.NoopSummarizer{}, nil)
	url := startAgentServer(t, coord)
	conn := dial(t, url)

	sendProgramStarted(t, conn, "Prog")
	require.Eventually(t, func() bool {
		return coord.Registry().Active() != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		snap := coord.Snapshot()
		return snap.ActiveRun == nil && len(snap.Runs) == 1
	}, time.Second, 10*time.Millisecond)

	finished := coord.Snapshot().Runs[0]
	events := finished.OrderedEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventProgramFinished, events[len(events)-1].Type)
}

func TestSecondAgentConnectionRefused(t *testing.T) {
	coord := coordinator.New(summarizer.NoopSummarizer{}, nil)
	url := startAgentServer(t, coord)
	first := dial(t, url)

	sendProgramStarted(t, first, "Prog")
	require.Eventually(t, func() bool {
		return coord.Registry().Active() != nil
	}, time.Second, 10*time.Millisecond)

	second := dial(t, url)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := second.ReadMessage()
	assert.Error(t, err, "refused peer must see its connection closed")

	assert.NotNil(t, coord.Registry().Active(), "first agent keeps its run")
}

func TestProtocolViolationClosesAgent(t *testing.T) {
	coord := coordinator.New(summarizer.NoopSummarizer{}, nil)
	url := startAgentServer(t, coord)
	conn := dial(t, url)

	sendBreakpoint(t, conn, uuid.New(), "orphan")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "breakpoint with no active run must close the agent")
}

func TestMalformedAgentMessageClosesAgent(t *testing.T) {
	coord := coordinator.New(summarizer.NoopSummarizer{}, nil)
	url := startAgentServer(t, coord)
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
