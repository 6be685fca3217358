package main

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/arturoeanton/go-mini-rag/internal/adapter/ai"
	"github.com/arturoeanton/go-mini-rag/internal/adapter/docs"
	"github.com/arturoeanton/go-mini-rag/internal/adapter/store"
	"github.com/arturoeanton/go-mini-rag/internal/handler"
	"github.com/arturoeanton/go-mini-rag/internal/middleware"
	"github.com/arturoeanton/go-mini-rag/internal/service"
	"github.com/arturoeanton/go-mini-rag/pkg/config"
	"github.com/arturoeanton/go-mini-rag/pkg/logger"
)

const version = "2.0.0"

func main() {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	cfg := config.Load()

	log := logger.New(cfg.Env, cfg.LogFile)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		os.Exit(1)
	}

	log.Info("starting Mini RAG API",
		zap.String("port", cfg.Port),
		zap.String("ollama", cfg.OllamaURL),
		zap.String("qdrant", cfg.QdrantURL),
		zap.String("collection", cfg.QdrantCollection),
	)

	// ── Adapters ─────────────────────────────────────────────────────────
	ollama := ai.NewOllamaProvider(ai.OllamaConfig{
		BaseURL:        cfg.OllamaURL,
		GenModel:       cfg.GenModel,
		EmbeddingModel: cfg.EmbeddingModel,
	}, log)

	qdrant := store.NewQdrantStore(store.QdrantConfig{
		BaseURL:    cfg.QdrantURL,
		Collection: cfg.QdrantCollection,
	}, log)

	loader := docs.NewLoader(log)

	users := store.NewUserStore()
	if err := users.Seed(); err != nil {
		log.Error("failed to seed default users", zap.Error(err))
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	authService := service.NewAuthService(users, service.AuthConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Expiration: time.Duration(cfg.JWTExpirationMinutes) * time.Minute,
	}, log)

	ragService := service.NewRAGService(ollama, qdrant, cfg.TopK, log)

	indexer := service.NewIndexer(loader, ollama, qdrant, service.IndexerConfig{
		Dimension:    cfg.EmbeddingDimension,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, log)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// ── Public Routes ────────────────────────────────────────────────────
	authHandler := handler.NewAuthHandler(authService)
	authHandler.RegisterPublic(app)

	healthHandler := handler.NewHealthHandler(ragService, cfg.AppName, version)
	healthHandler.Register(app)

	// ── Protected Routes ─────────────────────────────────────────────────
	api := app.Group("", middleware.JWT(authService))

	authHandler.Register(api)

	ragHandler := handler.NewRAGHandler(ragService)
	ragHandler.Register(api)

	documentHandler := handler.NewDocumentHandler(indexer, loader, qdrant, cfg.DocsDir, cfg.EmbeddingDimension)
	documentHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	log.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}
