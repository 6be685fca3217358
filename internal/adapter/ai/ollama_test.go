package ai

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/port"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OllamaProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOllamaProvider(OllamaConfig{
		BaseURL:        srv.URL,
		GenModel:       "llama3.1:8b",
		EmbeddingModel: "nomic-embed-text",
	}, zap.NewNop())
}

func TestEmbed(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		assert.Equal(t, "hello", req["prompt"])

		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	})

	vec, err := provider.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedMissingField(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"unexpected": true})
	})

	_, err := provider.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, port.ErrEmbedding)
}

func TestEmbedBackendError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := provider.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, port.ErrEmbedding)
}

func TestEmbedQueryNormalizes(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{3, 4}})
	})

	vec, err := provider.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestEmbedQueryZeroVector(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0, 0, 0}})
	})

	vec, err := provider.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, vec)
}

func TestEmbedBatchEmpty(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend should not be called")
	})

	_, err := provider.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, port.ErrEmptyBatch)
}

func TestEmbedBatchOneCallPerText(t *testing.T) {
	calls := 0
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1}})
	})

	vecs, err := provider.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.Equal(t, 3, calls)
}

func TestGenerate(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req["model"])
		assert.Equal(t, false, req["stream"])

		json.NewEncoder(w).Encode(map[string]any{"response": "hi there", "done": true})
	})

	out, err := provider.Generate(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestGenerateMissingResponseField(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"done": true})
	})

	out, err := provider.Generate(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't generate an answer.", out)
}

func TestGenerateBackendError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	_, err := provider.Generate(context.Background(), "say hi")
	assert.ErrorIs(t, err, port.ErrGeneration)
}

func TestGenerateStream(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, true, req["stream"])

		w.Write([]byte(`{"response":"Hel","done":false}` + "\n"))
		w.Write([]byte("this is not json\n"))
		w.Write([]byte(`{"response":"lo","done":false}` + "\n"))
		w.Write([]byte(`{"response":"!","done":true}` + "\n"))
		w.Write([]byte(`{"response":"after done","done":false}` + "\n"))
	})

	stream, err := provider.GenerateStream(context.Background(), "greet me")
	require.NoError(t, err)

	var out string
	for tok := range stream {
		out += tok
	}
	assert.Equal(t, "Hello!", out)
}

func TestGenerateStreamBackendError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})

	_, err := provider.GenerateStream(context.Background(), "greet me")
	assert.ErrorIs(t, err, port.ErrGeneration)
}

func TestGenerateStreamCancellation(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 1000; i++ {
			w.Write([]byte(`{"response":"tok","done":false}` + "\n"))
		}
		w.Write([]byte(`{"response":"","done":true}` + "\n"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := provider.GenerateStream(ctx, "greet me")
	require.NoError(t, err)

	<-stream
	cancel()

	// Draining terminates even though the producer was cancelled mid-stream.
	for range stream {
	}
}
