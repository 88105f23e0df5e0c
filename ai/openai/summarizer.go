// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxSummaryInputChars bounds the text sent to the model so oversized chunks
// cannot blow the context window.
const maxSummaryInputChars = 6000

const summarySystemPrompt = "You are a technical editor for emergency field manuals. " +
	"Condense the provided passages into precise, factually grounded instructions. " +
	"Do not invent new information and always keep the response under the requested length."

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client      llms.Model
	temperature float64
	logger      *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := config.APIKey
	if token == "" {
		token = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(config.SummaryHost),
		openai.WithToken(token),
		openai.WithModel(config.SummaryModel),
	)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client:      client,
		temperature: config.SummaryTemperature,
		logger:      slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// Summarize condenses text to at most maxWords words using the configured
// chat model. The caller is responsible for the degrade-to-original fallback;
// this method reports failures as errors.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	input := text
	if len(input) > maxSummaryInputChars {
		input = input[:maxSummaryInputChars]
	}

	userPrompt := fmt.Sprintf(
		"Summarize the following text so it fits within %d words. "+
			"Use short sentences or bullet points and preserve critical cautions.\n\n%s",
		maxWords, input)

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(summarySystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	response, err := s.client.GenerateContent(ctx, content,
		llms.WithTemperature(s.temperature),
		llms.WithMaxTokens(800),
	)
	if err != nil {
		s.logger.Error("summarization request failed", "err", err)
		return "", err
	}

	if len(response.Choices) == 0 {
		s.logger.Warn("summarizer returned no choices")
		return "", fmt.Errorf("summarizer returned no choices")
	}

	summary := strings.TrimSpace(response.Choices[0].Content)
	if summary == "" {
		s.logger.Warn("summarizer returned empty content")
		return "", fmt.Errorf("summarizer returned empty content")
	}

	return summary, nil
}
