package popular

import (
	"context"
	"time"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Repository reads scoped records in recency order.
type Repository interface {
	ListRecent(ctx context.Context, scope domain.Scope, since time.Time, limit int) ([]domrec.Record, error)
}
