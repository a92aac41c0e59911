// Package similar retrieves semantically close past queries: "what did
// people around here search for that means the same thing".
package similar

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
	"github.com/kailas-cloud/querymem/internal/logger"
)

// Config tunes similarity retrieval.
type Config struct {
	MinScore     float64 // similarity floor, results below are dropped
	DefaultLimit int
	MaxLimit     int
	BestEffort   bool // degrade to empty results instead of failing the read
}

// Query is one similarity lookup.
type Query struct {
	Query    string
	TenantID string
	UserID   string
	Limit    int      // 0 = config default
	MinScore *float64 // nil = config default; explicit 0 disables the floor
}

// Service handles similarity retrieval over stored queries.
type Service struct {
	repo  Repository
	embed Embedder
	cfg   Config
}

// New creates a similarity service.
func New(repo Repository, embed Embedder, cfg Config) *Service {
	return &Service{repo: repo, embed: embed, cfg: cfg}
}

// FindSimilar embeds the query and returns scoped records at or above
// the similarity floor, best first. Equal scores order by recency.
// In best-effort mode embedding or store failures log a warning and
// return an empty slice.
func (s *Service) FindSimilar(ctx context.Context, q *Query) ([]domrec.Match, error) {
	scope, err := domain.NewScope(q.TenantID, q.UserID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(q.Query)
	if text == "" {
		return nil, fmt.Errorf("query text is required: %w", domain.ErrValidation)
	}

	limit := s.clampLimit(q.Limit)
	minScore := s.cfg.MinScore
	if q.MinScore != nil {
		minScore = *q.MinScore
	}

	embResult, err := s.embed.Embed(ctx, text)
	if err != nil {
		return s.degrade(ctx, "similar lookup: embed failed", err)
	}

	matches, err := s.repo.SearchKNN(ctx, scope, embResult.Embedding, limit)
	if err != nil {
		return s.degrade(ctx, "similar lookup: knn failed", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}
	matches = kept

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Record.Timestamp().After(matches[j].Record.Timestamp())
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Suggest returns distinct query texts similar to the typed prefix or
// phrase, for completion UIs. Case and whitespace variants collapse to
// the first form seen.
func (s *Service) Suggest(ctx context.Context, q *Query) ([]string, error) {
	matches, err := s.FindSimilar(ctx, q)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		norm := m.Record.NormalizedText()
		if seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, m.Record.QueryText())
	}
	return out, nil
}

func (s *Service) degrade(ctx context.Context, msg string, err error) ([]domrec.Match, error) {
	if !s.cfg.BestEffort {
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	logger.FromContext(ctx).Warn(msg, zap.Error(err))
	return []domrec.Match{}, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}
