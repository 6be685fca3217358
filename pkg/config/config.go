package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Port    string
	AppName string
	Env     string

	// JWT
	JWTSecret            string
	JWTIssuer            string
	JWTExpirationMinutes int

	// Ollama
	OllamaURL      string
	GenModel       string
	EmbeddingModel string

	EmbeddingDimension int

	// Qdrant
	QdrantURL        string
	QdrantCollection string

	// Document processing
	DocsDir      string
	ChunkSize    int
	ChunkOverlap int
	TopK         int

	// CORS
	CORSOrigins []string

	// Logging
	LogFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:    envOrDefault("PORT", "8000"),
		AppName: envOrDefault("APP_NAME", "Mini RAG API"),
		Env:     envOrDefault("GO_ENV", "development"),

		JWTSecret:            envOrDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:            envOrDefault("JWT_ISSUER", "mini-rag"),
		JWTExpirationMinutes: envOrDefaultInt("JWT_EXPIRATION_MINUTES", 30),

		OllamaURL:      envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		GenModel:       envOrDefault("GEN_MODEL", "llama3.1:8b"),
		EmbeddingModel: envOrDefault("EMB_MODEL", "nomic-embed-text"),

		EmbeddingDimension: envOrDefaultInt("EMBEDDING_DIMENSION", 768),

		QdrantURL:        envOrDefault("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: envOrDefault("QDRANT_COLLECTION", "rag_chunks"),

		DocsDir:      envOrDefault("DOCS_DIR", "docs"),
		ChunkSize:    envOrDefaultInt("CHUNK_SIZE", 800),
		ChunkOverlap: envOrDefaultInt("CHUNK_OVERLAP", 120),
		TopK:         envOrDefaultInt("TOP_K", 6),

		CORSOrigins: splitCSV(envOrDefault("CORS_ORIGINS", "*")),

		LogFile: os.Getenv("LOG_FILE"),
	}
}

// Validate rejects configurations the pipeline cannot run with. A chunk
// overlap at or above the chunk size would degenerate the sliding window
// stride, so it is refused here rather than checked per chunk call.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", c.EmbeddingDimension)
	}
	if c.TopK < 1 {
		return fmt.Errorf("TOP_K must be at least 1, got %d", c.TopK)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
