package domain

import "errors"

var (
	// ErrNotFound signals a missing query record.
	ErrNotFound = errors.New("record not found")
	// ErrValidation signals invalid caller input (empty query, missing tenant).
	ErrValidation = errors.New("validation failed")
	// ErrEmbeddingProvider signals an embedding provider failure:
	// unreachable, timeout, or malformed output.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrStoreWrite signals a persistence failure in the vector store.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreQuery signals a retrieval failure in the vector store.
	ErrStoreQuery = errors.New("store query failed")
)
