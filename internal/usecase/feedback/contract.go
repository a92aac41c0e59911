package feedback

import (
	"context"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Repository locates records by query text and applies click updates.
type Repository interface {
	LatestByQuery(ctx context.Context, scope domain.Scope, text string) (domrec.Record, error)
	AddClick(ctx context.Context, id, resultID string) (bool, error)
}
