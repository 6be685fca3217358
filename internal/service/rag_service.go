package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
)

// systemPrompt is the fixed tone/behavior contract sent to the generation
// model with every grounded prompt.
const systemPrompt = "You are a helpful, knowledgeable assistant. Answer questions naturally and conversationally, primarily using the information provided in the context. " +
	"Write in a clear, human-friendly style that's easy to read and understand. " +
	"When the context contains relevant information, use it to provide comprehensive answers. " +
	"If asked to create tables or lists, you can do so when it helps organize information clearly. " +
	"If the answer is not in the context, you can still provide helpful general knowledge or explain what you know about the topic. " +
	"When referencing information, mention the source naturally in your response (e.g., 'According to the document...' or 'The source mentions...'). " +
	"Be helpful and informative while staying conversational and natural."

// noContextMessage is returned when retrieval produced nothing to ground on.
const noContextMessage = "I don't have enough information to answer your question. Please upload some documents first."

const (
	minQueryLen   = 3
	maxQueryLen   = 1000
	maxTopK       = 50
	previewLength = 120
)

// RAGService answers questions by retrieving relevant chunks and prompting
// the generation backend. It is the boundary where backend failures turn
// into user-visible degraded answers instead of hard errors.
type RAGService struct {
	ai      port.AIProvider
	vectors port.VectorStore
	topK    int
	log     *zap.Logger
}

// NewRAGService creates a new RAG service with the given default top-k.
func NewRAGService(ai port.AIProvider, vectors port.VectorStore, topK int, log *zap.Logger) *RAGService {
	return &RAGService{ai: ai, vectors: vectors, topK: topK, log: log}
}

// ValidateQuery rejects empty, too-short, or too-long queries.
func (s *RAGService) ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.NewValidationError("Query cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) < minQueryLen {
		return domain.NewValidationError("Query too short")
	}
	if utf8.RuneCountInString(query) > maxQueryLen {
		return domain.NewValidationError("Query too long")
	}
	return nil
}

// ValidateTopK resolves an optional top-k: nil means the configured
// default, anything outside [1, 50] is rejected.
func (s *RAGService) ValidateTopK(topK *int) (int, error) {
	if topK == nil {
		return s.topK, nil
	}
	if *topK < 1 {
		return 0, domain.NewValidationError("top_k must be at least 1")
	}
	if *topK > maxTopK {
		return 0, domain.NewValidationError(fmt.Sprintf("top_k cannot exceed %d", maxTopK))
	}
	return *topK, nil
}

// SearchChunks embeds the query and returns the topK most similar chunks,
// ranked by descending score. A point with a malformed payload degrades to
// default field values instead of failing the search.
func (s *RAGService) SearchChunks(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	vector, err := s.ai.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.vectors.Search(ctx, vector, topK, nil)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunk := domain.RetrievedChunk{DocPath: "unknown", Score: hit.Score}
		if text, ok := hit.Payload["text"].(string); ok {
			chunk.Text = text
		}
		if docPath, ok := hit.Payload["doc_path"].(string); ok && docPath != "" {
			chunk.DocPath = docPath
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// GenerateAnswer produces a grounded answer for the query. Without any
// context chunks it returns a fixed message and never calls the backend.
func (s *RAGService) GenerateAnswer(ctx context.Context, query string, chunks []domain.RetrievedChunk) (string, error) {
	if len(chunks) == 0 {
		return noContextMessage, nil
	}
	return s.ai.Generate(ctx, buildPrompt(query, chunks))
}

// StreamAnswer is the streaming variant of GenerateAnswer, sharing its
// prompt construction. Without context chunks the stream carries the fixed
// message and closes.
func (s *RAGService) StreamAnswer(ctx context.Context, query string, chunks []domain.RetrievedChunk) (<-chan string, error) {
	if len(chunks) == 0 {
		ch := make(chan string, 1)
		ch <- noContextMessage
		close(ch)
		return ch, nil
	}
	return s.ai.GenerateStream(ctx, buildPrompt(query, chunks))
}

// Ask runs retrieval then generation. Internal failures come back as an
// error-shaped answer, never as an error return.
func (s *RAGService) Ask(ctx context.Context, query string, topK int) domain.Answer {
	chunks, err := s.SearchChunks(ctx, query, topK)
	if err != nil {
		s.log.Warn("search failed", zap.String("query", query), zap.Error(err))
		return errorAnswer(err)
	}

	answer, err := s.GenerateAnswer(ctx, query, chunks)
	if err != nil {
		s.log.Warn("generation failed", zap.String("query", query), zap.Error(err))
		return errorAnswer(err)
	}

	sources := make([]domain.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = domain.Source{DocPath: c.DocPath, Preview: preview(c.Text)}
	}
	return domain.Answer{Answer: answer, Sources: sources}
}

// AskStream runs retrieval then streaming generation. The returned byte
// sequence is one-shot and forward-only; failures surface as a final
// human-readable chunk on the stream, preserving anything already emitted.
func (s *RAGService) AskStream(ctx context.Context, query string, topK int) <-chan []byte {
	out := make(chan []byte, 64)

	go func() {
		defer close(out)

		chunks, err := s.SearchChunks(ctx, query, topK)
		if err != nil {
			s.log.Warn("search failed", zap.String("query", query), zap.Error(err))
			out <- []byte("Error: " + err.Error())
			return
		}

		stream, err := s.StreamAnswer(ctx, query, chunks)
		if err != nil {
			s.log.Warn("stream open failed", zap.String("query", query), zap.Error(err))
			out <- []byte("Error: " + err.Error())
			return
		}

		for token := range stream {
			select {
			case out <- []byte(token):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// Health reports the collection size and backend reachability. It degrades
// rather than errors: an unreachable backend flips a status flag.
func (s *RAGService) Health(ctx context.Context) domain.Health {
	info := s.vectors.Info(ctx)

	h := domain.Health{
		Status:           "ok",
		Mode:             "qdrant (persistent)",
		DocumentsIndexed: info.PointsCount,
		Message:          "Running with Qdrant vector database",
	}

	if info.Status == "active" {
		h.QdrantStatus = "connected"
	} else {
		h.QdrantStatus = "disconnected"
	}

	if _, err := s.ai.Embed(ctx, "test"); err != nil {
		h.OllamaStatus = "disconnected"
	} else {
		h.OllamaStatus = "connected"
	}

	return h
}

// CollectionInfo reports the vector collection's current state.
func (s *RAGService) CollectionInfo(ctx context.Context) domain.CollectionInfo {
	return s.vectors.Info(ctx)
}

// buildPrompt assembles the fixed system instruction, the retrieved
// context blocks, and the question into one generation prompt.
func buildPrompt(query string, chunks []domain.RetrievedChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		if c.DocPath != "" {
			parts[i] = fmt.Sprintf("From %s: %s", c.DocPath, c.Text)
		} else {
			parts[i] = c.Text
		}
	}

	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\nPlease provide a helpful and informative answer:",
		systemPrompt, strings.Join(parts, "\n\n"), query)
}

func errorAnswer(err error) domain.Answer {
	return domain.Answer{
		Answer:  "Error: " + err.Error(),
		Sources: []domain.Source{},
	}
}

// preview returns the first 120 characters of text.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength])
}
