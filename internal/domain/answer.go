package domain

// Source identifies a chunk that contributed to an answer. Preview is a
// bounded prefix of the chunk text.
type Source struct {
	DocPath string `json:"doc_path"`
	Preview string `json:"preview"`
}

// Answer is the user-visible result of a question.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IndexResult reports the outcome of one indexing pass.
type IndexResult struct {
	Indexed int    `json:"indexed"`
	Message string `json:"message"`
}

// CollectionInfo is a snapshot of the vector collection's state.
type CollectionInfo struct {
	Name        string `json:"collection_name"`
	PointsCount int    `json:"points_count"`
	Status      string `json:"status"`
}

// Health reports the reachability of the service's backends.
type Health struct {
	Status           string `json:"status"`
	Mode             string `json:"mode"`
	DocumentsIndexed int    `json:"documents_indexed"`
	OllamaStatus     string `json:"ollama_status"`
	QdrantStatus     string `json:"qdrant_status"`
	Message          string `json:"message,omitempty"`
}

// ValidationError reports a rejected user input. Handlers map it to a
// 400 response instead of a degraded answer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with the given message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}
