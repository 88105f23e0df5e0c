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

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

const (
	notFoundDetail = "context pack not found"

	maxTopK         = 50
	maxDownloadPage = 500

	shutdownGrace = 10 * time.Second
)

// Embedder is the embedding surface the API needs; *ai.EmbeddingService
// satisfies it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	VectorSize(ctx context.Context) (int, error)
}

// Registry is the pack metadata surface the API needs.
type Registry interface {
	Upsert(ctx context.Context, meta core.PackMetadata) error
	Get(ctx context.Context, packID string) (*core.PackMetadata, error)
	List(ctx context.Context) ([]core.PackMetadata, error)
}

// Server is the context pack HTTP API.
type Server struct {
	engine      *gin.Engine
	store       vectorstore.Store
	registry    Registry
	embedder    Embedder
	defaultTopK int
	logger      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithDefaultTopK sets the search result count used when a request does
// not specify one.
func WithDefaultTopK(topK int) Option {
	return func(s *Server) {
		if topK > 0 {
			s.defaultTopK = topK
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.With("component", "server")
		}
	}
}

// New creates the API server and registers all routes.
func New(store vectorstore.Store, registry Registry, embedder Embedder, opts ...Option) *Server {
	s := &Server{
		engine:      gin.New(),
		store:       store,
		registry:    registry,
		embedder:    embedder,
		defaultTopK: 5,
		logger:      slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/packs", s.handleListPacks)

	packs := s.engine.Group("/packs/:pack_id")
	packs.POST("/documents", s.handleIngest)
	packs.POST("/search", s.handleSearch)
	packs.GET("/download", s.handleDownload)
	packs.GET("/metadata", s.handleGetMetadata)
	packs.PUT("/metadata", s.handlePutMetadata)

	return s
}

// Handler exposes the routing tree, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIngest(c *gin.Context) {
	packID := c.Param("pack_id")

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if len(req.Documents) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "provide at least one document"})
		return
	}
	for i, doc := range req.Documents {
		if doc.DocumentID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "documents[" + strconv.Itoa(i) + "]: document_id is required"})
			return
		}
		if strings.TrimSpace(doc.Text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "documents[" + strconv.Itoa(i) + "]: text cannot be empty"})
			return
		}
	}

	ctx := c.Request.Context()
	texts := make([]string, len(req.Documents))
	for i, doc := range req.Documents {
		texts[i] = doc.Text
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		s.serverError(c, "embedding failed", err)
		return
	}
	if len(vectors) != len(texts) {
		s.serverError(c, "embedding failed",
			fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
		return
	}
	vectorSize, err := s.embedder.VectorSize(ctx)
	if err != nil {
		s.serverError(c, "resolving vector size failed", err)
		return
	}

	records := make([]core.EmbeddingRecord, len(req.Documents))
	for i, doc := range req.Documents {
		records[i] = core.EmbeddingRecord{
			DocumentID: doc.DocumentID,
			Text:       doc.Text,
			Embedding:  vectors[i],
			Metadata:   doc.Metadata,
		}
	}

	stored, err := s.store.Upsert(ctx, packID, records, vectorSize)
	if err != nil {
		s.serverError(c, "upsert failed", err)
		return
	}
	c.JSON(http.StatusOK, ingestResponse{Stored: stored})
}

func (s *Server) handleSearch(c *gin.Context) {
	packID := c.Param("pack_id")

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}
	topK := s.defaultTopK
	if req.TopK != nil {
		if *req.TopK < 1 || *req.TopK > maxTopK {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "top_k must be between 1 and 50"})
			return
		}
		topK = *req.TopK
	}

	ctx := c.Request.Context()
	vectors, err := s.embedder.EmbedTexts(ctx, []string{req.Query})
	if err != nil {
		s.serverError(c, "embedding query failed", err)
		return
	}
	if len(vectors) == 0 {
		s.serverError(c, "embedder returned no vector for the query",
			fmt.Errorf("expected 1 vector, got %d", len(vectors)))
		return
	}

	records, err := s.store.Search(ctx, packID, vectors[0], topK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrPackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": notFoundDetail})
			return
		}
		s.serverError(c, "search failed", err)
		return
	}

	results := make([]searchResult, len(records))
	for i, rec := range records {
		metadata := rec.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		results[i] = searchResult{
			DocumentID: rec.DocumentID,
			Text:       rec.Text,
			Score:      rec.Score,
			Metadata:   metadata,
		}
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) handleDownload(c *gin.Context) {
	packID := c.Param("pack_id")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDownloadPage {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	offset := c.Query("offset")

	records, next, err := s.store.Download(c.Request.Context(), packID, limit, offset)
	if err != nil {
		if errors.Is(err, vectorstore.ErrPackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": notFoundDetail})
			return
		}
		s.serverError(c, "download failed", err)
		return
	}

	items := make([]downloadItem, len(records))
	for i, rec := range records {
		metadata := rec.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		embedding := rec.Embedding
		if embedding == nil {
			embedding = []float32{}
		}
		items[i] = downloadItem{
			DocumentID: rec.DocumentID,
			Text:       rec.Text,
			Embedding:  embedding,
			Metadata:   metadata,
		}
	}

	resp := downloadResponse{
		PackID: packID,
		Limit:  limit,
		Items:  items,
	}
	if offset != "" {
		resp.Offset = &offset
	}
	if next != "" {
		resp.NextOffset = &next
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListPacks(c *gin.Context) {
	entries, err := s.registry.List(c.Request.Context())
	if err != nil {
		s.serverError(c, "listing packs failed", err)
		return
	}
	out := make([]packMetadataResponse, len(entries))
	for i, entry := range entries {
		out[i] = metadataResponse(entry)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetMetadata(c *gin.Context) {
	packID := c.Param("pack_id")
	meta, err := s.registry.Get(c.Request.Context(), packID)
	if err != nil {
		if errors.Is(err, vectorstore.ErrPackNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": notFoundDetail})
			return
		}
		s.serverError(c, "reading pack metadata failed", err)
		return
	}
	c.JSON(http.StatusOK, metadataResponse(*meta))
}

func (s *Server) handlePutMetadata(c *gin.Context) {
	packID := c.Param("pack_id")

	var req metadataUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if req.TotalDocuments < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "total_documents must not be negative"})
		return
	}

	topics := make([]core.TopicStat, len(req.Topics))
	for i, t := range req.Topics {
		topics[i] = core.TopicStat{Name: t.Name, DocumentCount: t.DocumentCount}
	}
	meta := core.PackMetadata{
		PackID:         packID,
		TotalDocuments: req.TotalDocuments,
		Topics:         topics,
		SourceURLs:     req.SourceURLs,
		Metadata:       req.Metadata,
	}

	if err := s.registry.Upsert(c.Request.Context(), meta); err != nil {
		s.serverError(c, "writing pack metadata failed", err)
		return
	}
	stored, err := s.registry.Get(c.Request.Context(), packID)
	if err != nil {
		s.serverError(c, "reading back pack metadata failed", err)
		return
	}
	c.JSON(http.StatusOK, metadataResponse(*stored))
}

func (s *Server) serverError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, "error", err, "path", c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": msg})
}
