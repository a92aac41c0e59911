// Package popular ranks queries by engagement inside a lookback window.
// Repeats of the same query (modulo case and spacing) group into one
// entry whose score combines how often it was searched and how often
// its results were clicked.
package popular

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// Config tunes popularity ranking.
type Config struct {
	ClickWeight     int64 // score contribution of one click
	DefaultLimit    int
	MaxLimit        int
	DefaultDaysBack int
	ScanCap         int // max records aggregated per call
}

// Query is one trending lookup.
type Query struct {
	TenantID string
	UserID   string
	Limit    int // 0 = config default
	DaysBack int // 0 = config default
}

// Entry is one trending query with its aggregated stats.
type Entry struct {
	Query    string    // representative text: the most recent raw form
	Count    int       // times searched in the window
	Clicks   int64     // total result clicks across repeats
	Score    int64     // Count + ClickWeight*Clicks
	Sources  []string  // union of sources searched, first-seen order
	LastSeen time.Time // newest timestamp in the group
}

// Service handles popularity ranking.
type Service struct {
	repo Repository
	cfg  Config
	now  func() time.Time
}

// New creates a popularity service.
func New(repo Repository, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg, now: time.Now}
}

// Trending aggregates the window's records by normalized query text and
// returns entries ordered by score, highest first. Ties order by most
// recent activity.
func (s *Service) Trending(ctx context.Context, q *Query) ([]Entry, error) {
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

	daysBack := q.DaysBack
	if daysBack <= 0 {
		daysBack = s.cfg.DefaultDaysBack
	}
	since := s.now().UTC().AddDate(0, 0, -daysBack)

	recs, err := s.repo.ListRecent(ctx, scope, since, s.cfg.ScanCap)
	if err != nil {
		return nil, fmt.Errorf("window scan: %w", err)
	}

	entries := aggregate(recs, s.cfg.ClickWeight)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// aggregate groups records by normalized text. Records arrive newest
// first, so the first record of a group supplies the representative
// text and LastSeen.
func aggregate(recs []domrec.Record, clickWeight int64) []Entry {
	index := make(map[string]int, len(recs))
	entries := make([]Entry, 0, len(recs))
	sourcesSeen := make(map[string]map[string]bool)

	for i := range recs {
		rec := &recs[i]
		norm := rec.NormalizedText()

		pos, ok := index[norm]
		if !ok {
			pos = len(entries)
			index[norm] = pos
			entries = append(entries, Entry{
				Query:    rec.QueryText(),
				LastSeen: rec.Timestamp(),
			})
			sourcesSeen[norm] = make(map[string]bool)
		}

		e := &entries[pos]
		e.Count++
		e.Clicks += rec.ClickCount()
		for _, src := range rec.Sources() {
			if !sourcesSeen[norm][src] {
				sourcesSeen[norm][src] = true
				e.Sources = append(e.Sources, src)
			}
		}
	}

	for i := range entries {
		entries[i].Score = int64(entries[i].Count) + clickWeight*entries[i].Clicks
	}
	return entries
}
