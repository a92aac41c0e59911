// Package history serves the recency view of query memory: what a
// tenant or user searched for lately, newest first.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Config tunes history retrieval.
type Config struct {
	DefaultLimit int
	MaxLimit     int
}

// Query is one history lookup.
type Query struct {
	TenantID string
	UserID   string
	Limit    int // 0 = config default
	DaysBack int // 0 = unbounded, full history
}

// Service handles recency retrieval.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// New creates a history service.
func New(repo Repository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Recent returns scoped records newest first, bounded to a lookback
// window when DaysBack is set.
func (s *Service) Recent(ctx context.Context, q *Query) ([]domrec.Record, error) {
	scope, err := domain.NewScope(q.TenantID, q.UserID)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	// Zero DaysBack means no lookback bound.
	var since time.Time
	if q.DaysBack > 0 {
		since = s.now().UTC().AddDate(0, 0, -q.DaysBack)
	}

	recs, err := s.repo.ListRecent(ctx, scope, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return recs, nil
}
