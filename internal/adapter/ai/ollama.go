package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/port"
)

const normEpsilon = 1e-12

// OllamaConfig holds the configuration for the Ollama backend.
type OllamaConfig struct {
	BaseURL        string // e.g. http://localhost:11434
	GenModel       string // e.g. llama3.1:8b
	EmbeddingModel string // e.g. nomic-embed-text
}

// OllamaProvider implements port.AIProvider against the Ollama REST API.
type OllamaProvider struct {
	cfg        OllamaConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewOllamaProvider creates a new Ollama-backed AI provider.
func NewOllamaProvider(cfg OllamaConfig, log *zap.Logger) *OllamaProvider {
	return &OllamaProvider{
		cfg:        cfg,
		httpClient: &http.Client{},
		log:        log,
	}
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model":  o.cfg.EmbeddingModel,
		"prompt": text,
	}

	body, err := o.post(ctx, "/api/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrEmbedding, err)
	}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", port.ErrEmbedding, err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("%w: response missing embedding field", port.ErrEmbedding)
	}

	vector := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

// EmbedQuery generates an L2-normalized embedding for a search query, so
// cosine similarity downstream reduces to a dot product. Indexed vectors
// are stored raw; only this path normalizes.
func (o *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := o.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return normalize(vector), nil
}

// EmbedBatch generates embeddings for multiple texts, one backend call per
// text. Texts are not deduplicated.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, port.ErrEmptyBatch
	}

	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := o.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// Generate sends a prompt and returns the complete response.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  o.cfg.GenModel,
		"prompt": prompt,
		"stream": false,
	}

	body, err := o.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrGeneration, err)
	}

	var resp struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode: %v", port.ErrGeneration, err)
	}
	if resp.Response == nil {
		return "Sorry, I couldn't generate an answer.", nil
	}
	return *resp.Response, nil
}

// GenerateStream sends a prompt and streams the response token-by-token.
// The backend answers with newline-delimited JSON objects; malformed lines
// are skipped and the stream ends when an object carries done=true.
func (o *OllamaProvider) GenerateStream(ctx context.Context, prompt string) (<-chan string, error) {
	payload := map[string]any{
		"model":  o.cfg.GenModel,
		"prompt": prompt,
		"stream": true,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %v", port.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/api/generate", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", port.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrGeneration, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", port.ErrGeneration, resp.StatusCode, string(body))
	}

	ch := make(chan string, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var chunk struct {
				Response string `json:"response"`
				Done     bool   `json:"done"`
			}
			if err := json.Unmarshal(line, &chunk); err != nil {
				o.log.Warn("skipping malformed stream line", zap.Error(err))
				continue
			}

			if chunk.Response != "" {
				select {
				case ch <- chunk.Response:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
	}()

	return ch, nil
}

// post is a helper for POST requests to the Ollama API.
func (o *OllamaProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// normalize scales a vector to unit length. The epsilon keeps a zero
// vector from dividing by zero.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum) + normEpsilon

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
