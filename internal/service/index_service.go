package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
)

// IndexerConfig holds the chunking and collection parameters.
type IndexerConfig struct {
	Dimension    int
	ChunkSize    int
	ChunkOverlap int
}

// Indexer populates the vector collection from documents on disk.
type Indexer struct {
	loader  port.DocumentLoader
	ai      port.AIProvider
	vectors port.VectorStore
	cfg     IndexerConfig
	log     *zap.Logger
}

// NewIndexer creates an indexing pipeline.
func NewIndexer(loader port.DocumentLoader, ai port.AIProvider, vectors port.VectorStore, cfg IndexerConfig, log *zap.Logger) *Indexer {
	return &Indexer{loader: loader, ai: ai, vectors: vectors, cfg: cfg, log: log}
}

// Index loads, chunks, embeds, and upserts the documents under path.
//
// With clear set, the collection is deleted and recreated and the call
// returns without indexing anything; repopulating takes a second,
// non-clearing call. Re-running on identical content is idempotent: each
// chunk's fingerprint id overwrites the existing point.
//
// An embedding or upsert failure aborts the whole call with no partial
// commit.
func (s *Indexer) Index(ctx context.Context, path string, clear bool) (domain.IndexResult, error) {
	docs := s.loader.Load(path)
	if len(docs) == 0 {
		return domain.IndexResult{Message: fmt.Sprintf("No indexable docs under %s", path)}, nil
	}

	if clear {
		if err := s.vectors.EnsureCollection(ctx, s.cfg.Dimension, true); err != nil {
			return domain.IndexResult{}, err
		}
		s.log.Info("collection cleared", zap.String("path", path))
		return domain.IndexResult{Message: "All data cleared"}, nil
	}

	if err := s.vectors.EnsureCollection(ctx, s.cfg.Dimension, false); err != nil {
		return domain.IndexResult{}, err
	}

	var chunks []domain.Chunk
	for _, doc := range docs {
		for _, text := range ChunkWords(doc.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
			chunks = append(chunks, domain.Chunk{Text: text, DocPath: doc.DocPath, ModTime: doc.ModTime})
		}
	}
	if len(chunks) == 0 {
		return domain.IndexResult{Message: fmt.Sprintf("No text chunks created from %s", path)}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.ai.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.IndexResult{}, err
	}

	points := make([]domain.Point, len(chunks))
	for i, c := range chunks {
		points[i] = domain.Point{
			ID:     Fingerprint(c.Text),
			Vector: vectors[i],
			Payload: domain.Payload{
				Text:    c.Text,
				DocPath: c.DocPath,
				Mtime:   float64(c.ModTime.UnixNano()) / 1e9,
			},
		}
	}

	if err := s.vectors.Upsert(ctx, points); err != nil {
		return domain.IndexResult{}, err
	}

	s.log.Info("indexed documents",
		zap.String("path", path),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(points)),
	)
	return domain.IndexResult{
		Indexed: len(points),
		Message: fmt.Sprintf("Indexed %d chunks in Qdrant", len(points)),
	}, nil
}
