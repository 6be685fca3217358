package handler

import (
	"bufio"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-mini-rag/internal/service"
)

// RAGHandler handles question-answering and search endpoints.
type RAGHandler struct {
	rag *service.RAGService
}

// NewRAGHandler creates a new RAG handler.
func NewRAGHandler(rag *service.RAGService) *RAGHandler {
	return &RAGHandler{rag: rag}
}

// Register sets up RAG routes.
func (h *RAGHandler) Register(router fiber.Router) {
	rag := router.Group("/rag")
	rag.Post("/ask", h.Ask)
	rag.Post("/ask/stream", h.AskStream)
	rag.Get("/search", h.Search)
}

type askRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

// Ask answers a question with retrieved context, synchronously.
func (h *RAGHandler) Ask(c fiber.Ctx) error {
	var body askRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	topK, err := h.validate(body.Query, body.TopK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(h.rag.Ask(c.Context(), body.Query, topK))
}

// AskStream answers a question as a plain-text token stream. The stream is
// one-shot: asking again opens an entirely new stream.
func (h *RAGHandler) AskStream(c fiber.Ctx) error {
	var body askRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	topK, err := h.validate(body.Query, body.TopK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	stream := h.rag.AskStream(c.Context(), body.Query, topK)
	return c.SendStreamWriter(func(w *bufio.Writer) {
		for chunk := range stream {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

// Search returns raw ranked chunks for a query, without generation.
func (h *RAGHandler) Search(c fiber.Ctx) error {
	query := c.Query("query")

	var topK *int
	if raw := c.Query("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "top_k must be an integer"})
		}
		topK = &n
	}

	k, err := h.validate(query, topK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	chunks, err := h.rag.SearchChunks(c.Context(), query, k)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"query":   query,
		"results": chunks,
		"count":   len(chunks),
	})
}

func (h *RAGHandler) validate(query string, topK *int) (int, error) {
	if err := h.rag.ValidateQuery(query); err != nil {
		return 0, err
	}
	return h.rag.ValidateTopK(topK)
}
