// Package feedback folds click-through signals back into query memory.
// A click raises the popularity of the query it came from.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/querymem/internal/domain"
)

// Click reports that a user clicked one result of a past search.
type Click struct {
	Query    string
	TenantID string
	UserID   string
	ResultID string
}

// Service records click feedback.
type Service struct {
	repo Repository
}

// New creates a feedback service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordClick finds the most recent scoped record matching the query
// text and atomically applies the click. Returns false when no record
// matches; that is not an error, the click is simply unattributable.
func (s *Service) RecordClick(ctx context.Context, c *Click) (bool, error) {
	scope, err := domain.NewScope(c.TenantID, c.UserID)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(c.Query) == "" {
		return false, fmt.Errorf("query text is required: %w", domain.ErrValidation)
	}
	if c.ResultID == "" {
		return false, fmt.Errorf("result_id is required: %w", domain.ErrValidation)
	}

	rec, err := s.repo.LatestByQuery(ctx, scope, c.Query)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find record for click: %w", err)
	}

	ok, err := s.repo.AddClick(ctx, rec.ID(), c.ResultID)
	if err != nil {
		return false, fmt.Errorf("apply click: %w", err)
	}
	return ok, nil
}
