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
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultModel is the cheap, fast model used for one-line summaries.
	DefaultModel = "claude-3-5-haiku-20241022"
	// DefaultMaxTokens caps summary length; summaries are meant to be short.
	DefaultMaxTokens = 256
)

// AnthropicSummarizer is the production Summarizer, backed by the
// Anthropic Messages API.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicSummarizer builds a summarizer against the Anthropic API
// using apiKey. model and maxTokens default to DefaultModel and
// DefaultMaxTokens when zero-valued.
func NewAnthropicSummarizer(apiKey, model string, maxTokens int) *AnthropicSummarizer {
	if model == "" {
		model = DefaultModel
	}
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	return &AnthropicSummarizer{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
	}
}

// Summarize sends payload, preceded by kind's prompt template, to the
// model as a single system-authored message and returns the reply text.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, kind Kind, previousQueryData, payload any) (string, error) {
	prompt := buildPrompt(kind, previousQueryData)
	system := fmt.Sprintf("%s\n\n%q", prompt, fmt.Sprint(payload))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Summarize as instructed.")),
		},
	}

	message, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic summarization call failed: %w", err)
	}

	var out string
	for _, block := range message.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
