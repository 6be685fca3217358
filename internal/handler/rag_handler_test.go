package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
	"github.com/arturoeanton/go-mini-rag/internal/service"
)

// fakeAI answers every embed with a fixed vector and every generate with a
// fixed string.
type fakeAI struct {
	answer string
	tokens []string
}

func (f *fakeAI) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, port.ErrEmptyBatch
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeAI) Generate(ctx context.Context, prompt string) (string, error) {
	return f.answer, nil
}

func (f *fakeAI) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	ch := make(chan string, len(f.tokens))
	for _, tok := range f.tokens {
		ch <- tok
	}
	close(ch)
	return ch, nil
}

// fakeVectors returns fixed hits.
type fakeVectors struct {
	hits []port.SearchHit
}

func (f *fakeVectors) EnsureCollection(ctx context.Context, dim int, clear bool) error { return nil }

func (f *fakeVectors) Upsert(ctx context.Context, points []domain.Point) error { return nil }

func (f *fakeVectors) Search(ctx context.Context, vector []float32, limit int, filter *port.Filter) ([]port.SearchHit, error) {
	return f.hits, nil
}

func (f *fakeVectors) DeleteByFilter(ctx context.Context, filter port.Filter) error { return nil }

func (f *fakeVectors) DeleteCollection(ctx context.Context) error { return nil }

func (f *fakeVectors) Info(ctx context.Context) domain.CollectionInfo {
	return domain.CollectionInfo{Name: "rag_chunks", Status: "active"}
}

func newRAGTestApp(ai *fakeAI, vectors *fakeVectors) *fiber.App {
	app := fiber.New()
	rag := service.NewRAGService(ai, vectors, 6, zap.NewNop())
	NewRAGHandler(rag).Register(app)
	return app
}

func TestAskEndpoint(t *testing.T) {
	ai := &fakeAI{answer: "grounded answer"}
	vectors := &fakeVectors{hits: []port.SearchHit{
		{ID: 1, Score: 0.9, Payload: map[string]any{"text": "alpha facts", "doc_path": "docs/a.md"}},
	}}
	app := newRAGTestApp(ai, vectors)

	req := httptest.NewRequest("POST", "/rag/ask", strings.NewReader(`{"query":"what is alpha?"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var answer domain.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "grounded answer", answer.Answer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "docs/a.md", answer.Sources[0].DocPath)
	assert.Equal(t, "alpha facts", answer.Sources[0].Preview)
}

func TestAskRejectsShortQuery(t *testing.T) {
	app := newRAGTestApp(&fakeAI{}, &fakeVectors{})

	req := httptest.NewRequest("POST", "/rag/ask", strings.NewReader(`{"query":"ab"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Query too short", body["error"])
}

func TestAskRejectsBadTopK(t *testing.T) {
	app := newRAGTestApp(&fakeAI{}, &fakeVectors{})

	req := httptest.NewRequest("POST", "/rag/ask", strings.NewReader(`{"query":"valid question","top_k":51}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "top_k cannot exceed 50", body["error"])
}

func TestAskStreamEndpoint(t *testing.T) {
	ai := &fakeAI{tokens: []string{"Hel", "lo", "!"}}
	vectors := &fakeVectors{hits: []port.SearchHit{
		{ID: 1, Score: 0.9, Payload: map[string]any{"text": "ctx", "doc_path": "a.md"}},
	}}
	app := newRAGTestApp(ai, vectors)

	req := httptest.NewRequest("POST", "/rag/ask/stream", strings.NewReader(`{"query":"greet me"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", string(body))
}

func TestSearchEndpoint(t *testing.T) {
	vectors := &fakeVectors{hits: []port.SearchHit{
		{ID: 1, Score: 0.8, Payload: map[string]any{"text": "alpha", "doc_path": "a.md"}},
		{ID: 2, Score: 0.6, Payload: map[string]any{"text": "beta", "doc_path": "b.md"}},
	}}
	app := newRAGTestApp(&fakeAI{}, vectors)

	resp, err := app.Test(httptest.NewRequest("GET", "/rag/search?query=alpha+beta&top_k=2", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Query   string                  `json:"query"`
		Results []domain.RetrievedChunk `json:"results"`
		Count   int                     `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alpha beta", body.Query)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "alpha", body.Results[0].Text)
}

func TestSearchRejectsNonIntegerTopK(t *testing.T) {
	app := newRAGTestApp(&fakeAI{}, &fakeVectors{})

	resp, err := app.Test(httptest.NewRequest("GET", "/rag/search?query=valid+question&top_k=lots", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
