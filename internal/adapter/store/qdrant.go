package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
)

// QdrantConfig holds connection settings for the Qdrant REST API.
type QdrantConfig struct {
	BaseURL    string // e.g. http://localhost:6333
	Collection string
	APIKey     string        // optional
	Timeout    time.Duration // zero means 60s
}

// QdrantStore implements port.VectorStore against the Qdrant REST API.
// It assumes cosine distance for the collection it manages.
type QdrantStore struct {
	cfg        QdrantConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewQdrantStore creates a Qdrant-backed vector store.
func NewQdrantStore(cfg QdrantConfig, log *zap.Logger) *QdrantStore {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &QdrantStore{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// EnsureCollection creates the collection if missing. With clear set, an
// existing collection is deleted and recreated with the given dimensionality.
func (q *QdrantStore) EnsureCollection(ctx context.Context, dim int, clear bool) error {
	exists, err := q.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists && clear {
		if err := q.DeleteCollection(ctx); err != nil {
			return err
		}
		exists = false
	}

	if !exists {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dim,
				"distance": "Cosine",
			},
		}
		if err := q.do(ctx, http.MethodPut, q.collectionURL(), body, nil); err != nil {
			return err
		}
		q.log.Info("created collection", zap.String("collection", q.cfg.Collection), zap.Int("dim", dim))
	} else {
		q.log.Info("using existing collection", zap.String("collection", q.cfg.Collection))
	}
	return nil
}

// Upsert inserts or overwrites points by id in one call.
func (q *QdrantStore) Upsert(ctx context.Context, points []domain.Point) error {
	payload := make([]map[string]any, len(points))
	for i, p := range points {
		payload[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": payload}
	return q.do(ctx, http.MethodPut, q.collectionURL()+"/points?wait=true", body, nil)
}

// Search returns up to limit nearest neighbors by cosine similarity.
func (q *QdrantStore) Search(ctx context.Context, vector []float32, limit int, filter *port.Filter) ([]port.SearchHit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		body["filter"] = matchFilter(*filter)
	}

	var resp struct {
		Result []struct {
			ID      uint64         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionURL()+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	hits := make([]port.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, port.SearchHit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// DeleteByFilter removes all points whose payload field matches the filter
// value. Used to retract a document's chunks by source path.
func (q *QdrantStore) DeleteByFilter(ctx context.Context, filter port.Filter) error {
	body := map[string]any{"filter": matchFilter(filter)}
	return q.do(ctx, http.MethodPost, q.collectionURL()+"/points/delete?wait=true", body, nil)
}

// DeleteCollection drops the collection entirely.
func (q *QdrantStore) DeleteCollection(ctx context.Context) error {
	if err := q.do(ctx, http.MethodDelete, q.collectionURL(), nil, nil); err != nil {
		return err
	}
	q.log.Info("deleted collection", zap.String("collection", q.cfg.Collection))
	return nil
}

// Info reports the collection's point count and status. Backend failures
// are folded into the status string so health checks stay non-fatal.
func (q *QdrantStore) Info(ctx context.Context) domain.CollectionInfo {
	info := domain.CollectionInfo{Name: q.cfg.Collection}

	var resp struct {
		Result struct {
			PointsCount int    `json:"points_count"`
			Status      string `json:"status"`
		} `json:"result"`
	}
	err := q.do(ctx, http.MethodGet, q.collectionURL(), nil, &resp)
	if err != nil {
		if isNotFound(err) {
			info.Status = "not_found"
		} else {
			info.Status = fmt.Sprintf("error: %v", err)
		}
		return info
	}

	info.PointsCount = resp.Result.PointsCount
	info.Status = "active"
	return info
}

func (q *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	err := q.do(ctx, http.MethodGet, q.collectionURL(), nil, nil)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (q *QdrantStore) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", q.cfg.BaseURL, q.cfg.Collection)
}

// statusError carries the HTTP status of a failed Qdrant call so callers
// can tell "collection missing" apart from "backend down".
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant error (%d): %s", e.code, e.body)
}

func (e *statusError) Unwrap() error { return port.ErrVectorStore }

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (q *QdrantStore) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal: %v", port.ErrVectorStore, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", port.ErrVectorStore, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.cfg.APIKey != "" {
		req.Header.Set("api-key", q.cfg.APIKey)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", port.ErrVectorStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode: %v", port.ErrVectorStore, err)
		}
	}
	return nil
}

func matchFilter(f port.Filter) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   f.Field,
				"match": map[string]any{"value": f.Value},
			},
		},
	}
}
