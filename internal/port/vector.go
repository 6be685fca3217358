package port

import (
	"context"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
)

// Filter restricts a search or delete to points whose payload field
// matches a value exactly.
type Filter struct {
	Field string
	Value string
}

// SearchHit is one ranked result from a similarity search.
type SearchHit struct {
	ID      uint64
	Score   float64
	Payload map[string]any
}

// VectorStore abstracts the external vector database holding chunk
// embeddings for one collection.
type VectorStore interface {
	// EnsureCollection creates the collection if missing. With clear set,
	// an existing collection is deleted and recreated with the given
	// dimensionality.
	EnsureCollection(ctx context.Context, dim int, clear bool) error

	// Upsert inserts or overwrites points by id.
	Upsert(ctx context.Context, points []domain.Point) error

	// Search returns up to limit nearest neighbors by cosine similarity.
	Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]SearchHit, error)

	// DeleteByFilter removes all points matching a payload condition.
	DeleteByFilter(ctx context.Context, filter Filter) error

	// DeleteCollection drops the collection entirely.
	DeleteCollection(ctx context.Context) error

	// Info reports the collection's point count and status. Backend
	// failures are folded into the status string so health checks degrade
	// instead of erroring.
	Info(ctx context.Context) domain.CollectionInfo
}
