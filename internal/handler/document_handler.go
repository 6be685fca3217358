package handler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-mini-rag/internal/port"
	"github.com/arturoeanton/go-mini-rag/internal/service"
)

// DocumentHandler handles indexing, upload, and collection admin endpoints.
type DocumentHandler struct {
	indexer   *service.Indexer
	loader    port.DocumentLoader
	vectors   port.VectorStore
	docsDir   string
	dimension int
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(indexer *service.Indexer, loader port.DocumentLoader, vectors port.VectorStore, docsDir string, dimension int) *DocumentHandler {
	return &DocumentHandler{
		indexer:   indexer,
		loader:    loader,
		vectors:   vectors,
		docsDir:   docsDir,
		dimension: dimension,
	}
}

// Register sets up document routes.
func (h *DocumentHandler) Register(router fiber.Router) {
	docs := router.Group("/documents")
	docs.Post("/upsert", h.Upsert)
	docs.Post("/upload", h.Upload)
	docs.Get("/stats", h.Stats)
	docs.Delete("/source", h.DeleteSource)
	docs.Get("/collection/status", h.CollectionStatus)
	docs.Post("/collection/initialize", h.InitializeCollection)
}

type upsertRequest struct {
	Path  string `json:"path"`
	Clear bool   `json:"clear"`
}

// Upsert indexes the documents under a path. With clear set, the
// collection is emptied instead; repopulating takes a second call.
func (h *DocumentHandler) Upsert(c fiber.Ctx) error {
	var body upsertRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	path := body.Path
	if path == "" {
		path = h.docsDir
	}

	result, err := h.indexer.Index(c.Context(), path, body.Clear)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

var allowedUploadExts = map[string]bool{".txt": true, ".md": true, ".pdf": true}

// Upload saves multipart files into the documents directory. Indexing is a
// separate, explicit call.
func (h *DocumentHandler) Upload(c fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart form"})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no files provided"})
	}

	if err := os.MkdirAll(h.docsDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	var saved []string
	for _, file := range files {
		name := filepath.Base(file.Filename)
		if !allowedUploadExts[strings.ToLower(filepath.Ext(name))] {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unsupported extension: " + filepath.Ext(name),
			})
		}
		if err := c.SaveFile(file, filepath.Join(h.docsDir, name)); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": name + ": " + err.Error(),
			})
		}
		saved = append(saved, name)
	}

	return c.JSON(fiber.Map{
		"saved":   saved,
		"message": "Files uploaded. Indexing has started.",
	})
}

// Stats reports document counts under a path without touching the
// vector store.
func (h *DocumentHandler) Stats(c fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		path = h.docsDir
	}

	stats := h.loader.Stats(path)
	return c.JSON(fiber.Map{
		"status":                "success",
		"total_documents":       stats.TotalDocuments,
		"total_characters":      stats.TotalCharacters,
		"total_words":           stats.TotalWords,
		"average_chars_per_doc": stats.AverageCharsPerDoc,
		"average_words_per_doc": stats.AverageWordsPerDoc,
	})
}

// DeleteSource retracts all chunks indexed from one source path.
func (h *DocumentHandler) DeleteSource(c fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}

	if err := h.vectors.DeleteByFilter(c.Context(), port.Filter{Field: "doc_path", Value: path}); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Deleted chunks from " + path})
}

// CollectionStatus reports the vector collection's point count and status.
func (h *DocumentHandler) CollectionStatus(c fiber.Ctx) error {
	info := h.vectors.Info(c.Context())
	return c.JSON(fiber.Map{
		"status":          "success",
		"collection_name": info.Name,
		"points_count":    info.PointsCount,
		"collection":      info.Status,
	})
}

// InitializeCollection creates the collection, optionally clearing an
// existing one first.
func (h *DocumentHandler) InitializeCollection(c fiber.Ctx) error {
	clear := c.Query("clear") == "true"

	if err := h.vectors.EnsureCollection(c.Context(), h.dimension, clear); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Collection initialized",
	})
}
