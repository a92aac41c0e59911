// Package record implements the write side of query memory: each search
// a caller performs is embedded once and persisted as a QueryRecord.
package record

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// SaveRequest describes one executed search to remember.
type SaveRequest struct {
	Query       string
	TenantID    string
	UserID      string
	ResultCount int
	Sources     []string
	Metadata    map[string]any
}

// Service records executed searches.
type Service struct {
	repo       Repository
	embed      Embedder
	dimensions int
	now        func() time.Time
	newID      func() string
}

// New creates a record service. dimensions > 0 enables the embedding
// dimension check.
func New(repo Repository, embed Embedder, dimensions int) *Service {
	return &Service{
		repo:       repo,
		embed:      embed,
		dimensions: dimensions,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Save embeds the query text and persists a new record with zero click
// stats. Returns the generated record id. The write is attempted once:
// a failed save is reported, never retried.
func (s *Service) Save(ctx context.Context, req *SaveRequest) (string, error) {
	scope, err := domain.NewScope(req.TenantID, req.UserID)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(req.Query)
	if text == "" {
		return "", fmt.Errorf("query text is required: %w", domain.ErrValidation)
	}
	if req.ResultCount < 0 {
		return "", fmt.Errorf("result_count must not be negative: %w", domain.ErrValidation)
	}

	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if err := domain.ValidateEmbedding(embResult.Embedding, s.dimensions); err != nil {
		return "", err
	}

	id := s.newID()
	rec, err := domrec.New(
		id, text, embResult.Embedding, scope,
		s.now().UTC(), req.ResultCount, req.Sources, req.Metadata,
	)
	if err != nil {
		return "", err
	}

	if err := s.repo.Save(ctx, &rec); err != nil {
		return "", fmt.Errorf("save record: %w", err)
	}
	return id, nil
}
