package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrEmbedding    = errors.New("embedding backend failed")
	ErrGeneration   = errors.New("generation backend failed")
	ErrVectorStore  = errors.New("vector store failed")
	ErrEmptyBatch   = errors.New("need at least one text to embed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username already registered")
)
