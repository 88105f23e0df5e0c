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


package core

import (
	"fmt"
	"strings"
)

// NewDocumentChunk builds a validated, immutable DocumentChunk. The metadata
// map is copied so callers cannot mutate the chunk after construction.
//
// Validation rules:
//   - DocumentID must not be empty
//   - Text must not be blank after trimming
func NewDocumentChunk(documentID, text string, metadata map[string]any) (DocumentChunk, error) {
	if documentID == "" {
		return DocumentChunk{}, fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}
	if strings.TrimSpace(text) == "" {
		return DocumentChunk{}, fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	copied := make(map[string]any, len(metadata))
	for k, v := range metadata {
		copied[k] = v
	}

	return DocumentChunk{
		DocumentID: documentID,
		Text:       text,
		Metadata:   copied,
	}, nil
}

// ValidateChunk validates an already-built DocumentChunk, for chunks that
// arrive over the wire rather than through NewDocumentChunk.
func ValidateChunk(chunk *DocumentChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}
	if strings.TrimSpace(chunk.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}
	return nil
}

// ValidateChunkCoordinates checks that (sourceIndex, chunkIndex) fit inside
// the fixed-width ID scheme. Coordinates beyond the bounds would produce
// ambiguous IDs, so they are rejected rather than silently truncated.
func ValidateChunkCoordinates(sourceIndex, chunkIndex int) error {
	if sourceIndex < 0 || sourceIndex >= MaxSourcesPerPack {
		return fmt.Errorf("%w: source index %d", ErrTooManySources, sourceIndex)
	}
	if chunkIndex < 0 || chunkIndex >= MaxChunksPerSource {
		return fmt.Errorf("%w: chunk index %d", ErrTooManyChunks, chunkIndex)
	}
	return nil
}
