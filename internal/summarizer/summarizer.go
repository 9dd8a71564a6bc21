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
// Package summarizer produces short natural-language summaries of
// breakpoint payloads for display in the UI timeline. Summarization is
// advisory: a failure never halts or fails the run it describes.
package summarizer

import (
	"context"
	"fmt"

	"github.com/teradata-labs/loomdbg/internal/model"
)

// Kind selects which prompt template applies to a breakpoint, mirroring
// the four summarizable positions in the event lifecycle.
type Kind string

const (
	KindQueryRequest  Kind = "summarize_query_request"
	KindQueryResponse Kind = "summarize_query_response"
	KindToolCall      Kind = "summarize_tool_call"
	KindToolResult    Kind = "summarize_tool_result"
)

var prompts = map[Kind]string{
	KindQueryRequest:  "Summarize the following prompt sent to the language model in one concise sentence.",
	KindQueryResponse: "Summarize the following language model response in one concise sentence.",
	KindToolCall:      "Summarize the following tool invocation and its arguments in one concise sentence.",
	KindToolResult:    "Summarize the following tool result in one concise sentence.",
}

// Summarizer produces a one-line summary for a breakpoint payload, or an
// error if the call could not be completed. Callers treat any error as
// "no summary available" rather than a fatal condition.
type Summarizer interface {
	Summarize(ctx context.Context, kind Kind, previousQueryData, payload any) (string, error)
}

// ClassifyBreakpoint determines which summarization Kind applies to bp
// within event e, or ok=false if the event type isn't summarizable
// (PROGRAM_STARTED, PROGRAM_FINISHED, DEBUG_MESSAGE events carry no
// summary).
func ClassifyBreakpoint(e *model.Event, bp *model.Breakpoint) (Kind, bool) {
	isBegin := e.BeginBreakpoint().Equal(bp)
	switch e.Type {
	case model.EventLLMQuery:
		if isBegin {
			return KindQueryRequest, true
		}
		return KindQueryResponse, true
	case model.EventToolInvocation:
		if isBegin {
			return KindToolCall, true
		}
		return KindToolResult, true
	default:
		return "", false
	}
}

// SummarizeBreakpoint resolves the summarization Kind for bp within run
// and e, gathers the previous-query context the query-request prompt
// needs, and delegates to s. Returns ("", nil) for breakpoints that
// aren't summarizable at all; a non-nil error means s was asked and
// failed, which callers log and otherwise ignore.
func SummarizeBreakpoint(ctx context.Context, s Summarizer, run *model.Run, e *model.Event, bp *model.Breakpoint) (string, error) {
	kind, ok := ClassifyBreakpoint(e, bp)
	if !ok {
		return "", nil
	}

	var previousQuery any
	if kind == KindQueryRequest {
		if prev := run.PreviousLLMQueries(e); len(prev) > 0 {
			last := prev[len(prev)-1]
			previousQuery = last.BeginBreakpoint().Data()
		}
	}

	return s.Summarize(ctx, kind, previousQuery, bp.Data())
}

// buildPrompt assembles the system prompt for kind, folding in the prior
// query text for KindQueryRequest the way the original prompt helper
// prepends it before the payload to summarize.
func buildPrompt(kind Kind, previousQueryData any) string {
	prompt := prompts[kind]
	if kind == KindQueryRequest {
		prompt = fmt.Sprintf("%s\n\n%q\n\nBelow is the message to summarize:", prompt, fmt.Sprint(previousQueryData))
	}
	return prompt
}

// StubSummarizer is a deterministic Summarizer for tests; it never calls
// out to a model.
type StubSummarizer struct{}

// Summarize returns a fixed, kind-tagged string.
func (StubSummarizer) Summarize(_ context.Context, kind Kind, _, payload any) (string, error) {
	return fmt.Sprintf("[%s] %v", kind, payload), nil
}

// NoopSummarizer disables summarization entirely, matching the original
// coordinator's behavior when no LLM credentials are configured.
type NoopSummarizer struct{}

// Summarize always returns an empty summary with no error.
func (NoopSummarizer) Summarize(context.Context, Kind, any, any) (string, error) {
	return "", nil
}
