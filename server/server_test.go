package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/ai/mock"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/local"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := local.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return &mock.MockEmbedder{Dimension: 8}, nil
	}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(store, local.NewRegistry(store), embedder).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func putJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func ingestDocs(t *testing.T, srv *httptest.Server, packID string, docs []map[string]any) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/packs/"+packID+"/documents", map[string]any{"documents": docs})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Stored int `json:"stored"`
	}
	decodeBody(t, resp, &body)
	require.Equal(t, len(docs), body.Stored)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestIngestAndSearch(t *testing.T) {
	srv := newTestServer(t)

	ingestDocs(t, srv, "demo", []map[string]any{
		{"document_id": "demo-00-0000", "text": "boil water before drinking", "metadata": map[string]any{"topic": "water"}},
		{"document_id": "demo-00-0001", "text": "build a shelter from branches"},
	})

	resp := postJSON(t, srv.URL+"/packs/demo/search", map[string]any{"query": "boil water before drinking"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results []struct {
		DocumentID string         `json:"document_id"`
		Text       string         `json:"text"`
		Score      float64        `json:"score"`
		Metadata   map[string]any `json:"metadata"`
	}
	decodeBody(t, resp, &results)
	require.Len(t, results, 2)

	// the deterministic embedder makes the exact text the best match
	assert.Equal(t, "demo-00-0000", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "water", results[0].Metadata["topic"])
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestIngestValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "empty document list", body: map[string]any{"documents": []map[string]any{}}},
		{
			name: "blank text",
			body: map[string]any{"documents": []map[string]any{
				{"document_id": "demo-00-0000", "text": "   "},
			}},
		},
		{
			name: "missing document id",
			body: map[string]any{"documents": []map[string]any{
				{"text": "fine text"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/packs/demo/documents", tt.body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestSearchValidation(t *testing.T) {
	srv := newTestServer(t)

	for _, topK := range []int{0, 51, -3} {
		resp := postJSON(t, srv.URL+"/packs/demo/search", map[string]any{"query": "x", "top_k": topK})
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "top_k %d must be rejected", topK)
	}

	resp := postJSON(t, srv.URL+"/packs/demo/search", map[string]any{"query": "  "})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchEmbedderReturnsNoVector(t *testing.T) {
	store, err := local.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return &mock.MockEmbedder{
			EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{}, nil
			},
		}, nil
	}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(store, local.NewRegistry(store), embedder).Handler())
	t.Cleanup(srv.Close)

	resp := postJSON(t, srv.URL+"/packs/demo/search", map[string]any{"query": "anything"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "embedder returned no vector for the query", body["detail"])
}

func TestIngestEmbedderVectorCountMismatch(t *testing.T) {
	store, err := local.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return &mock.MockEmbedder{
			EmbedTextsFunc: func(ctx context.Context, texts []string) ([][]float32, error) {
				return [][]float32{{1, 0}}, nil
			},
		}, nil
	}, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(New(store, local.NewRegistry(store), embedder).Handler())
	t.Cleanup(srv.Close)

	resp := postJSON(t, srv.URL+"/packs/demo/documents", map[string]any{"documents": []map[string]any{
		{"document_id": "demo-00-0000", "text": "one"},
		{"document_id": "demo-00-0001", "text": "two"},
	}})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSearchUnknownPack(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/packs/ghost/search", map[string]any{"query": "anything"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "context pack not found", body["detail"])
}

func TestDownloadPagination(t *testing.T) {
	srv := newTestServer(t)

	docs := make([]map[string]any, 5)
	for i := range docs {
		docs[i] = map[string]any{
			"document_id": fmt.Sprintf("demo-00-%04d", i),
			"text":        fmt.Sprintf("chunk number %d", i),
		}
	}
	ingestDocs(t, srv, "demo", docs)

	type page struct {
		PackID     string  `json:"pack_id"`
		Limit      int     `json:"limit"`
		NextOffset *string `json:"next_offset"`
		Items      []struct {
			DocumentID string    `json:"document_id"`
			Embedding  []float32 `json:"embedding"`
		} `json:"items"`
	}

	seen := map[string]bool{}
	offset := ""
	for {
		url := srv.URL + "/packs/demo/download?limit=2"
		if offset != "" {
			url += "&offset=" + offset
		}
		resp, err := http.Get(url)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body page
		decodeBody(t, resp, &body)
		assert.Equal(t, "demo", body.PackID)
		assert.Equal(t, 2, body.Limit)
		for _, item := range body.Items {
			assert.False(t, seen[item.DocumentID], "point %s returned twice", item.DocumentID)
			seen[item.DocumentID] = true
			assert.Len(t, item.Embedding, 8)
		}
		if body.NextOffset == nil {
			break
		}
		offset = *body.NextOffset
	}
	assert.Len(t, seen, 5)
}

func TestDownloadValidation(t *testing.T) {
	srv := newTestServer(t)

	for _, limit := range []string{"0", "501", "abc"} {
		resp, err := http.Get(srv.URL + "/packs/demo/download?limit=" + limit)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "limit %s must be rejected", limit)
	}
}

func TestDownloadUnknownPack(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/packs/ghost/download")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "context pack not found", body["detail"])
}

func TestMetadataLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/packs/demo/metadata")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	put := putJSON(t, srv.URL+"/packs/demo/metadata", map[string]any{
		"total_documents": 3,
		"topics":          []map[string]any{{"name": "water", "document_count": 3}},
		"source_urls":     []string{"https://a.example"},
		"metadata":        map[string]any{"chunk_size": 900},
	})
	require.Equal(t, http.StatusOK, put.StatusCode)

	var stored packMetadataResponse
	decodeBody(t, put, &stored)
	assert.Equal(t, "demo", stored.PackID)
	assert.Equal(t, 3, stored.TotalDocuments)
	assert.NotEmpty(t, stored.LastIngestedAt)

	resp, err = http.Get(srv.URL + "/packs/demo/metadata")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched packMetadataResponse
	decodeBody(t, resp, &fetched)
	assert.Equal(t, stored.TotalDocuments, fetched.TotalDocuments)
	require.Len(t, fetched.Topics, 1)
	assert.Equal(t, "water", fetched.Topics[0].Name)

	resp, err = http.Get(srv.URL + "/packs")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []packMetadataResponse
	decodeBody(t, resp, &all)
	require.Len(t, all, 1)
	assert.Equal(t, "demo", all[0].PackID)
}

func TestMetadataValidation(t *testing.T) {
	srv := newTestServer(t)

	resp := putJSON(t, srv.URL+"/packs/demo/metadata", map[string]any{"total_documents": -1})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
