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
package summarizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/loomdbg/internal/model"
)

func TestClassifyBreakpointLLMQuery(t *testing.T) {
	ev := model.NewEvent(model.EventLLMQuery)
	begin := model.NewBreakpoint("agent-a", "prompt", ev.ID)
	ev.AddBreakpoint(begin)
	end := model.NewBreakpoint("agent-a", "response", ev.ID)
	ev.AddBreakpoint(end)

	kind, ok := ClassifyBreakpoint(ev, begin)
	require.True(t, ok)
	assert.Equal(t, KindQueryRequest, kind)

	kind, ok = ClassifyBreakpoint(ev, end)
	require.True(t, ok)
	assert.Equal(t, KindQueryResponse, kind)
}

func TestClassifyBreakpointToolInvocation(t *testing.T) {
	ev := model.NewEvent(model.EventToolInvocation)
	begin := model.NewBreakpoint("agent-a", "call", ev.ID)
	ev.AddBreakpoint(begin)
	end := model.NewBreakpoint("agent-a", "result", ev.ID)
	ev.AddBreakpoint(end)

	kind, ok := ClassifyBreakpoint(ev, begin)
	require.True(t, ok)
	assert.Equal(t, KindToolCall, kind)

	kind, ok = ClassifyBreakpoint(ev, end)
	require.True(t, ok)
	assert.Equal(t, KindToolResult, kind)
}

func TestClassifyBreakpointNotSummarizable(t *testing.T) {
	ev := model.NewEvent(model.EventDebugMessage)
	bp := model.NewBreakpoint("agent-a", "note", ev.ID)
	ev.AddBreakpoint(bp)

	_, ok := ClassifyBreakpoint(ev, bp)
	assert.False(t, ok)
}

func TestSummarizeBreakpointIncludesPreviousQuery(t *testing.T) {
	run := model.NewRun("r", "demo", time.Now(), "v1.0.0")

	firstQuery := model.NewEvent(model.EventLLMQuery)
	firstBegin := model.NewBreakpoint("agent-a", "first prompt", firstQuery.ID)
	firstQuery.AddBreakpoint(firstBegin)
	run.AddEvent(firstQuery)

	secondQuery := model.NewEvent(model.EventLLMQuery)
	secondQuery.CreatedAt = firstQuery.CreatedAt.Add(1)
	secondBegin := model.NewBreakpoint("agent-a", "second prompt", secondQuery.ID)
	secondQuery.AddBreakpoint(secondBegin)
	run.AddEvent(secondQuery)

	var captured any
	spy := spySummarizer{fn: func(_ Kind, prev, _ any) { captured = prev }}

	_, err := SummarizeBreakpoint(context.Background(), spy, run, secondQuery, secondBegin)
	require.NoError(t, err)
	assert.Equal(t, "first prompt", captured)
}

func TestSummarizeBreakpointSkipsUnsummarizableEvents(t *testing.T) {
	run := model.NewRun("r", "demo", time.Now(), "v1.0.0")
	ev := model.NewEvent(model.EventDebugMessage)
	bp := model.NewBreakpoint("agent-a", "note", ev.ID)
	ev.AddBreakpoint(bp)
	run.AddEvent(ev)

	summary, err := SummarizeBreakpoint(context.Background(), StubSummarizer{}, run, ev, bp)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestStubSummarizerTagsKind(t *testing.T) {
	out, err := StubSummarizer{}.Summarize(context.Background(), KindToolCall, nil, "payload")
	require.NoError(t, err)
	assert.Contains(t, out, string(KindToolCall))
	assert.Contains(t, out, "payload")
}

func TestNoopSummarizerReturnsEmpty(t *testing.T) {
	out, err := NoopSummarizer{}.Summarize(context.Background(), KindQueryRequest, nil, "payload")
	require.NoError(t, err)
	assert.Empty(t, out)
}

type spySummarizer struct {
	fn func(kind Kind, previousQueryData, payload any)
}

func (s spySummarizer) Summarize(_ context.Context, kind Kind, previousQueryData, payload any) (string, error) {
	s.fn(kind, previousQueryData, payload)
	return "summary", nil
}
