package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// ValidateEmbedding rejects provider output that cannot be indexed:
// wrong dimensionality or non-finite components. wantDim <= 0 skips
// the dimension check.
func ValidateEmbedding(vec []float32, wantDim int) error {
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding: %w", ErrEmbeddingProvider)
	}
	if wantDim > 0 && len(vec) != wantDim {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d: %w",
			len(vec), wantDim, ErrEmbeddingProvider)
	}
	for i, f := range vec {
		f64 := float64(f)
		if math.IsNaN(f64) || math.IsInf(f64, 0) {
			return fmt.Errorf("non-finite embedding component at %d: %w", i, ErrEmbeddingProvider)
		}
	}
	return nil
}
