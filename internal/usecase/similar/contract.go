package similar

import (
	"context"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Repository runs scoped vector similarity searches.
type Repository interface {
	SearchKNN(ctx context.Context, scope domain.Scope, vector []float32, k int) ([]domrec.Match, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
