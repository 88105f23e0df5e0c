// Copyright 2025 ZeroSignal AI
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

package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

const defaultTimeout = 30 * time.Second

// Point is a Qdrant point on the wire. IDs are either unsigned integers or
// UUID strings, so the field stays untyped.
type Point struct {
	ID      any            `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search hit with its similarity score.
type ScoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Client is a minimal REST client to Qdrant's collections and points APIs.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the api-key header sent on every request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("component", "qdrant")
		}
	}
}

// NewClient creates a Qdrant REST client for the given base URL,
// e.g. "http://localhost:6333".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CollectionExists reports whether the collection is present.
func (c *Client) CollectionExists(ctx context.Context, collection string) (bool, error) {
	status, _, err := c.do(ctx, http.MethodGet, "/collections/"+collection, nil)
	if err != nil {
		return false, err
	}
	switch {
	case status == http.StatusNotFound:
		return false, nil
	case status >= 300:
		return false, fmt.Errorf("qdrant: get collection %s: status %d", collection, status)
	}
	return true, nil
}

// CreateCollection creates a cosine-distance collection with the given
// vector size. A conflict from a concurrent creator counts as success.
func (c *Client) CreateCollection(ctx context.Context, collection string, vectorSize int) error {
	if vectorSize <= 0 {
		return vectorstore.ErrInvalidVectorSize
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	status, data, err := c.do(ctx, http.MethodPut, "/collections/"+collection, body)
	if err != nil {
		return err
	}
	if status == http.StatusConflict || (status >= 300 && strings.Contains(string(data), "already exists")) {
		c.logger.Debug("collection already exists", "collection", collection)
		return nil
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: create collection %s: status %d: %s", collection, status, truncateBody(data))
	}
	return nil
}

// DeleteCollection drops the collection. Missing collections are ignored.
func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	status, data, err := c.do(ctx, http.MethodDelete, "/collections/"+collection, nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusNotFound {
		return fmt.Errorf("qdrant: delete collection %s: status %d: %s", collection, status, truncateBody(data))
	}
	return nil
}

// UpsertPoints writes points and waits for them to be persisted, so a
// successful return means the data is durable.
func (c *Client) UpsertPoints(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	status, data, err := c.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("qdrant: upsert %d points into %s: status %d: %s", len(points), collection, status, truncateBody(data))
	}
	return nil
}

// SearchPoints runs a nearest-neighbor query with payloads included.
// Returns vectorstore.ErrPackNotFound when the collection is missing.
func (c *Client) SearchPoints(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	status, data, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: collection %s", vectorstore.ErrPackNotFound, collection)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant: search %s: status %d: %s", collection, status, truncateBody(data))
	}
	var resp struct {
		Result []ScoredPoint `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: decode search response: %w", err)
	}
	return resp.Result, nil
}

// ScrollPoints pages through a collection with vectors and payloads. A nil
// offset starts from the beginning; the returned offset is nil once the
// collection is exhausted.
func (c *Client) ScrollPoints(ctx context.Context, collection string, limit int, offset any) ([]Point, any, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	if offset != nil {
		body["offset"] = offset
	}
	status, data, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points/scroll", body)
	if err != nil {
		return nil, nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil, fmt.Errorf("%w: collection %s", vectorstore.ErrPackNotFound, collection)
	}
	if status >= 300 {
		return nil, nil, fmt.Errorf("qdrant: scroll %s: status %d: %s", collection, status, truncateBody(data))
	}
	var resp struct {
		Result struct {
			Points         []Point `json:"points"`
			NextPageOffset any     `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, nil, fmt.Errorf("qdrant: decode scroll response: %w", err)
	}
	return resp.Result.Points, resp.Result.NextPageOffset, nil
}

// RetrievePoints fetches points by ID with payloads but without vectors.
// Missing IDs are simply absent from the result.
func (c *Client) RetrievePoints(ctx context.Context, collection string, ids []any) ([]Point, error) {
	body := map[string]any{
		"ids":          ids,
		"with_payload": true,
		"with_vector":  false,
	}
	status, data, err := c.do(ctx, http.MethodPost, "/collections/"+collection+"/points", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: collection %s", vectorstore.ErrPackNotFound, collection)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant: retrieve points from %s: status %d: %s", collection, status, truncateBody(data))
	}
	var resp struct {
		Result []Point `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: decode retrieve response: %w", err)
	}
	return resp.Result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("qdrant: read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func truncateBody(data []byte) string {
	const max = 256
	s := string(data)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
