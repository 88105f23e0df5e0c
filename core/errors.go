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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a DocumentChunk failed validation.
	ErrInvalidChunk = errors.New("invalid document chunk")

	// ErrEmptyText indicates chunk text is empty after trimming.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyDocumentID indicates a chunk has no document ID.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrTooManySources indicates a pack exceeds the source bound of the
	// fixed-width ID scheme.
	ErrTooManySources = errors.New("pack exceeds maximum source count")

	// ErrTooManyChunks indicates a source exceeds the chunk bound of the
	// fixed-width ID scheme.
	ErrTooManyChunks = errors.New("source exceeds maximum chunk count")
)
