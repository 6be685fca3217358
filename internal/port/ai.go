package port

import "context"

// AIProvider abstracts the AI backend for embeddings and text generation.
// Implementations can target Ollama or any compatible API.
type AIProvider interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery generates an L2-normalized embedding for a search query.
	// Only the query path normalizes; indexed vectors are stored raw.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one call per text.
	// An empty input is an error, not an empty result.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Generate sends a prompt and returns the complete response.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream sends a prompt and streams the response token-by-token
	// via channel. The channel closes when the backend signals completion.
	GenerateStream(ctx context.Context, prompt string) (<-chan string, error)
}
