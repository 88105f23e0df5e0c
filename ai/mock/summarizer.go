package mock

import (
	"context"
	"strings"
	"sync/atomic"
)

// MockSummarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields.
// Safe for concurrent use; the pipeline summarizes chunks in parallel.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, uses default word-truncation behavior.
	SummarizeFunc func(ctx context.Context, text string, maxWords int) (string, error)

	callCount atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize truncates text to maxWords words by default.
func (m *MockSummarizer) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	m.callCount.Add(1)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, maxWords)
	}

	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, nil
	}
	return strings.Join(words[:maxWords], " "), nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and injected behavior.
func (m *MockSummarizer) Reset() {
	m.callCount.Store(0)
	m.SummarizeFunc = nil
}
