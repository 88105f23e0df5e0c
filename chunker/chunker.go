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


// Package chunker splits cleaned text into overlapping chunks suitable for
// embedding.
package chunker

import (
	"regexp"
	"strings"
)

const (
	// DefaultChunkSize is the default window width in characters.
	DefaultChunkSize = 900

	// DefaultChunkOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultChunkOverlap = 150
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// TextChunker slides a fixed-width window over normalized text, preferring to
// split on word boundaries. Each call to Split is stateless.
//
// ChunkOverlap < ChunkSize is enforced by configuration validation, not here;
// the forced-advance rule in Split guarantees termination even when the
// overlap is misconfigured.
type TextChunker struct {
	ChunkSize    int
	ChunkOverlap int
}

// New creates a TextChunker. Non-positive arguments fall back to the
// defaults.
func New(chunkSize, chunkOverlap int) *TextChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &TextChunker{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split returns the ordered chunks of text. Whitespace runs are collapsed to
// single spaces before splitting; empty input yields no chunks, and input no
// longer than ChunkSize yields exactly one.
func (c *TextChunker) Split(text string) []string {
	normalized := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if normalized == "" {
		return nil
	}
	if len(normalized) <= c.ChunkSize {
		return []string{normalized}
	}

	var chunks []string
	start := 0
	length := len(normalized)

	for start < length {
		end := start + c.ChunkSize
		if end > length {
			end = length
		}
		split := findSplit(normalized, start, end)

		chunk := strings.TrimSpace(normalized[start:split])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if split >= length {
			break
		}

		nextStart := max(split-c.ChunkOverlap, split)
		// Forced advance: never stall, even if the overlap is as large as
		// the window.
		if nextStart <= start {
			nextStart = split
		}
		start = nextStart
	}

	return chunks
}

// findSplit returns the index to cut at: the last space in (start, end], or a
// hard cut at end when no usable space exists in the window.
func findSplit(text string, start, end int) int {
	if end >= len(text) {
		return len(text)
	}
	split := strings.LastIndex(text[start:end], " ")
	if split == -1 {
		return end
	}
	split += start
	if split <= start {
		return end
	}
	return split
}
