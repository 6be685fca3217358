package port

import "github.com/arturoeanton/go-mini-rag/internal/domain"

// DocumentLoader reads indexable documents from a file or directory tree.
type DocumentLoader interface {
	// Load returns the readable documents under path; missing paths and
	// unreadable files yield fewer documents, never an error.
	Load(path string) []domain.Document

	// Stats summarizes the documents found under path.
	Stats(path string) domain.DocStats
}
