package querymem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/querymem/internal/db"
	dbMemory "github.com/kailas-cloud/querymem/internal/db/memory"
	dbRedis "github.com/kailas-cloud/querymem/internal/db/redis"
	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
	recordrepo "github.com/kailas-cloud/querymem/internal/repository/record"
	feedbackuc "github.com/kailas-cloud/querymem/internal/usecase/feedback"
	historyuc "github.com/kailas-cloud/querymem/internal/usecase/history"
	popularuc "github.com/kailas-cloud/querymem/internal/usecase/popular"
	recorduc "github.com/kailas-cloud/querymem/internal/usecase/record"
	similaruc "github.com/kailas-cloud/querymem/internal/usecase/similar"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the querymem SDK entry point.
type Client struct {
	store      db.Store
	recordSvc  *recorduc.Service
	similarSvc *similaruc.Service
	historySvc *historyuc.Service
	popularSvc *popularuc.Service
	clickSvc   *feedbackuc.Service
	obs        *observer
}

// New creates a querymem Client and connects to the store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dimensions:      1536,
		hnswM:           32,
		hnswEFConstruct: 400,
		minScore:        0.7,
		defaultLimit:    10,
		maxLimit:        100,
		clickWeight:     2,
		popularDaysBack: 7,
		popularScanCap:  1000,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("querymem: store required (use WithRedis or WithMemory)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("querymem: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return wireClient(ctx, store, cfg, obs)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("querymem: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("querymem: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	repo := recordrepo.New(store)
	if err := repo.EnsureIndex(ctx, recordrepo.HNSWConfig{
		Dim:         cfg.dimensions,
		M:           cfg.hnswM,
		EFConstruct: cfg.hnswEFConstruct,
	}); err != nil {
		store.Close()
		return nil, fmt.Errorf("querymem: ensure index: %w", err)
	}

	var domEmb domain.Embedder = noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}

	return &Client{
		store:     store,
		recordSvc: recorduc.New(repo, domEmb, cfg.dimensions),
		similarSvc: similaruc.New(repo, domEmb, similaruc.Config{
			MinScore:     cfg.minScore,
			DefaultLimit: cfg.defaultLimit,
			MaxLimit:     cfg.maxLimit,
			BestEffort:   cfg.bestEffort,
		}),
		historySvc: historyuc.New(repo, historyuc.Config{
			DefaultLimit: cfg.defaultLimit,
			MaxLimit:     cfg.maxLimit,
		}),
		popularSvc: popularuc.New(repo, popularuc.Config{
			ClickWeight:     cfg.clickWeight,
			DefaultLimit:    cfg.defaultLimit,
			MaxLimit:        cfg.maxLimit,
			DefaultDaysBack: cfg.popularDaysBack,
			ScanCap:         cfg.popularScanCap,
		}),
		clickSvc: feedbackuc.New(repo),
		obs:      obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// SaveQuery records one executed search and returns the record id.
func (c *Client) SaveQuery(ctx context.Context, req SaveQueryRequest) (id string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("save_query", start, err) }()

	return c.recordSvc.Save(ctx, &recorduc.SaveRequest{
		Query:       req.Query,
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ResultCount: req.ResultCount,
		Sources:     req.SourcesSearched,
		Metadata:    req.Metadata,
	})
}

// Similar returns past queries semantically close to the given text,
// ordered by similarity.
func (c *Client) Similar(ctx context.Context, req SimilarRequest) (matches []Match, err error) {
	start := time.Now()
	defer func() { c.obs.observe("similar", start, err) }()

	hits, err := c.similarSvc.FindSimilar(ctx, &similaruc.Query{
		Query:    req.Query,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Limit:    req.Limit,
		MinScore: req.MinScore,
	})
	if err != nil {
		return nil, err
	}

	matches = make([]Match, len(hits))
	for i := range hits {
		matches[i] = Match{
			QueryRecord: toQueryRecord(&hits[i].Record),
			Score:       hits[i].Score,
		}
	}
	return matches, nil
}

// Suggest returns deduplicated query texts similar to the given prefix
// or partial query.
func (c *Client) Suggest(ctx context.Context, req SimilarRequest) (texts []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err) }()

	return c.similarSvc.Suggest(ctx, &similaruc.Query{
		Query:    req.Query,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Limit:    req.Limit,
		MinScore: req.MinScore,
	})
}

// History returns the most recent queries in the window, newest first.
func (c *Client) History(ctx context.Context, req HistoryRequest) (records []QueryRecord, err error) {
	start := time.Now()
	defer func() { c.obs.observe("history", start, err) }()

	recs, err := c.historySvc.Recent(ctx, &historyuc.Query{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Limit:    req.Limit,
		DaysBack: req.DaysBack,
	})
	if err != nil {
		return nil, err
	}

	records = make([]QueryRecord, len(recs))
	for i := range recs {
		records[i] = toQueryRecord(&recs[i])
	}
	return records, nil
}

// Popular returns the top queries in the window ranked by
// count + clickWeight*clicks.
func (c *Client) Popular(ctx context.Context, req PopularRequest) (entries []PopularEntry, err error) {
	start := time.Now()
	defer func() { c.obs.observe("popular", start, err) }()

	top, err := c.popularSvc.Trending(ctx, &popularuc.Query{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Limit:    req.Limit,
		DaysBack: req.DaysBack,
	})
	if err != nil {
		return nil, err
	}

	entries = make([]PopularEntry, len(top))
	for i, e := range top {
		entries[i] = PopularEntry{
			Query:    e.Query,
			Count:    e.Count,
			Clicks:   e.Clicks,
			Score:    e.Score,
			Sources:  e.Sources,
			LastSeen: e.LastSeen,
		}
	}
	return entries, nil
}

// RecordClick attributes a result click to the latest record of the
// given query text. Returns false when no record matches.
func (c *Client) RecordClick(ctx context.Context, req ClickRequest) (recorded bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("record_click", start, err) }()

	return c.clickSvc.RecordClick(ctx, &feedbackuc.Click{
		Query:    req.Query,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		ResultID: req.ResultID,
	})
}

func toQueryRecord(rec *domrec.Record) QueryRecord {
	return QueryRecord{
		ID:               rec.ID(),
		Query:            rec.QueryText(),
		Timestamp:        rec.Timestamp(),
		ResultCount:      rec.ResultCount(),
		SourcesSearched:  rec.Sources(),
		ClickCount:       rec.ClickCount(),
		ClickedResultIDs: rec.ClickedResultIDs(),
		Metadata:         rec.Metadata(),
	}
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"%w: embedder not configured (use WithEmbedder)", domain.ErrEmbeddingProvider,
	)
}
