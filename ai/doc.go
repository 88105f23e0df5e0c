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


// Package ai provides abstractions for the AI services used by Cognit-Edge.
//
// This package defines interfaces for text embeddings and chunk
// summarization. It follows the dependency inversion principle, allowing the
// ingestion pipeline and the HTTP server to depend on abstractions rather
// than concrete implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Summarizer: Condenses chunk text to a word budget
//   - AIProvider: Aggregates AI services for convenient initialization
//
// The embedding model is expensive to construct, so EmbeddingService wraps
// any Embedder behind lazy single-flight initialization: exactly one caller
// builds the model, everyone else waits for it or reads it lock-free once it
// exists.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Usage Example
//
//	// Production usage with OpenAI provider
//	config := ai.NewConfig(ai.WithEmbeddingModel("text-embedding-3-small"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	service, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
//	    return provider.Embedder(), nil
//	}, nil)
//
//	vectors, err := service.EmbedTexts(ctx, []string{"hello world"})
//	dim, err := service.VectorSize(ctx)
package ai
