// Package record persists query records as hash documents with a vector
// index over their embeddings.
package record

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/querymem/internal/db"
	"github.com/kailas-cloud/querymem/internal/domain"
	"github.com/kailas-cloud/querymem/internal/domain/filter"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
)

// returnFields lists the hash fields hydrated on search reads. The raw
// vector stays in the store.
var returnFields = []string{
	fieldQuery, fieldTenantID, fieldUserID, fieldTS,
	fieldResultCount, fieldSources, fieldClickCount, fieldClicked, fieldMeta,
}

// store is the consumer interface for query records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchSort(ctx context.Context, q *db.SortQuery) (*db.SearchResult, error)
	ClickUpdate(ctx context.Context, key string, u db.ClickDelta) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements the record persistence contracts of the usecase layer.
type Repo struct {
	store store
}

// New creates a record repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save persists a record under its id.
func (r *Repo) Save(ctx context.Context, rec *domrec.Record) error {
	fields, err := buildHashFields(rec)
	if err != nil {
		return fmt.Errorf("%w: encode record %s: %w", domain.ErrStoreWrite, rec.ID(), err)
	}

	key := recordKey(rec.ID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("%w: hset %s: %w", domain.ErrStoreWrite, key, err)
	}
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(ctx context.Context, id string) (domrec.Record, error) {
	key := recordKey(id)
	h, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("%w: hgetall %s: %w", domain.ErrStoreQuery, key, err)
	}
	if len(h) == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}
	return parseHashFields(id, h), nil
}

// SearchKNN returns the k records nearest to the vector within the scope,
// best first.
func (r *Repo) SearchKNN(ctx context.Context, scope domain.Scope, vector []float32, k int) ([]domrec.Match, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(),
		Filters:      scopeFilter(scope),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrStoreQuery, err)
	}

	matches := make([]domrec.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		rec := parseHashFields(recordID(e.Key), e.Fields)
		matches = append(matches, domrec.Match{Record: rec, Score: e.Score})
	}
	return matches, nil
}

// ListRecent returns scoped records with timestamps at or after since,
// newest first. A zero since means no lower bound.
func (r *Repo) ListRecent(ctx context.Context, scope domain.Scope, since time.Time, limit int) ([]domrec.Record, error) {
	filters := scopeFilter(scope)
	if !since.IsZero() {
		gte := float64(since.UnixMilli())
		window, err := filter.NumRange(fieldTS, filter.Range{GTE: &gte})
		if err != nil {
			return nil, fmt.Errorf("%w: build window filter: %w", domain.ErrStoreQuery, err)
		}
		filters = filters.And(window)
	}

	res, err := r.store.SearchSort(ctx, &db.SortQuery{
		IndexName:    indexName(),
		Filters:      filters,
		SortField:    fieldTS,
		Desc:         true,
		Limit:        limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recency scan: %w", domain.ErrStoreQuery, err)
	}

	recs := make([]domrec.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		recs = append(recs, parseHashFields(recordID(e.Key), e.Fields))
	}
	return recs, nil
}

// LatestByQuery returns the most recent scoped record whose normalized
// text equals the normalized form of text.
func (r *Repo) LatestByQuery(ctx context.Context, scope domain.Scope, text string) (domrec.Record, error) {
	norm := domrec.Normalize(text)
	if norm == "" {
		return domrec.Record{}, domain.ErrNotFound
	}

	match, err := filter.Match(fieldQueryNorm, norm)
	if err != nil {
		return domrec.Record{}, fmt.Errorf("%w: build text filter: %w", domain.ErrStoreQuery, err)
	}

	res, err := r.store.SearchSort(ctx, &db.SortQuery{
		IndexName:    indexName(),
		Filters:      scopeFilter(scope).And(match),
		SortField:    fieldTS,
		Desc:         true,
		Limit:        1,
		ReturnFields: returnFields,
	})
	if err != nil {
		return domrec.Record{}, fmt.Errorf("%w: text lookup: %w", domain.ErrStoreQuery, err)
	}
	if len(res.Entries) == 0 {
		return domrec.Record{}, domain.ErrNotFound
	}

	e := res.Entries[0]
	return parseHashFields(recordID(e.Key), e.Fields), nil
}

// AddClick atomically increments the click counter and appends the
// clicked result id. Returns false when the record does not exist.
func (r *Repo) AddClick(ctx context.Context, id, resultID string) (bool, error) {
	ok, err := r.store.ClickUpdate(ctx, recordKey(id), db.ClickDelta{
		CountField: fieldClickCount,
		ListField:  fieldClicked,
		ResultID:   resultID,
		Separator:  clickedSep,
	})
	if err != nil {
		return false, fmt.Errorf("%w: click update %s: %w", domain.ErrStoreWrite, id, err)
	}
	return ok, nil
}

func scopeFilter(scope domain.Scope) filter.Expression {
	// Scope is constructed validated: keys are never empty, so the
	// condition constructors cannot fail here.
	tenant, _ := filter.Match(fieldTenantID, scope.TenantID())
	expr := filter.New(tenant)
	if scope.HasUser() {
		user, _ := filter.Match(fieldUserID, scope.UserID())
		expr = expr.And(user)
	}
	return expr
}

func recordKey(id string) string {
	return recordPrefix() + id
}

func recordID(key string) string {
	return strings.TrimPrefix(key, recordPrefix())
}

func recordPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, domain.Collection)
}

func indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, domain.Collection)
}
