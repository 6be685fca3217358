package domain

import "time"

// Document is the raw text of one loadable file.
type Document struct {
	Text    string
	DocPath string
	ModTime time.Time
}

// Chunk is a bounded word-window slice of a document, the unit of
// embedding and retrieval.
type Chunk struct {
	Text    string
	DocPath string
	ModTime time.Time
}

// Point is one stored vector with its payload. The id is the fingerprint
// of the chunk text, so re-indexing identical text overwrites in place.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}

// Payload is the metadata stored alongside each vector.
type Payload struct {
	Text    string  `json:"text"`
	DocPath string  `json:"doc_path"`
	Mtime   float64 `json:"mtime"`
}

// RetrievedChunk is a search hit mapped back to chunk text and provenance.
type RetrievedChunk struct {
	Text    string  `json:"text"`
	DocPath string  `json:"doc_path"`
	Score   float64 `json:"score"`
}

// DocStats summarizes the documents found under a path.
type DocStats struct {
	TotalDocuments     int `json:"total_documents"`
	TotalCharacters    int `json:"total_characters"`
	TotalWords         int `json:"total_words"`
	AverageCharsPerDoc int `json:"average_chars_per_doc"`
	AverageWordsPerDoc int `json:"average_words_per_doc"`
}
