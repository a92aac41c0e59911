package querymem

import "github.com/kailas-cloud/querymem/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrValidation        = domain.ErrValidation
	ErrEmbeddingProvider = domain.ErrEmbeddingProvider
	ErrStoreWrite        = domain.ErrStoreWrite
	ErrStoreQuery        = domain.ErrStoreQuery
)
