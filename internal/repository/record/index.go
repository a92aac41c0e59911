package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/querymem/internal/db"
)

// HNSWConfig tunes the vector index build.
type HNSWConfig struct {
	Dim         int
	M           int
	EFConstruct int
}

// buildIndex defines the query record index: tag fields for scoping,
// a sortable timestamp for recency scans, and an HNSW cosine vector field.
func buildIndex(hnsw HNSWConfig) *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:     indexName(),
		Prefixes: []string{recordPrefix()},
		Fields: []db.IndexField{
			{Name: fieldTenantID, Type: db.IndexFieldTag},
			{Name: fieldUserID, Type: db.IndexFieldTag},
			// The default "," separator would split normalized text
			// containing commas into several tags. A control character
			// keeps the whole text as one tag.
			{Name: fieldQueryNorm, Type: db.IndexFieldTag, TagSeparator: "\x1f"},
			{Name: fieldTS, Type: db.IndexFieldNumeric, Sortable: true},
			{Name: fieldClickCount, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Alias:             "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         hnsw.Dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           hnsw.M,
				VectorEFConstruct: hnsw.EFConstruct,
			},
		},
	}
}

// EnsureIndex creates the record index if it does not exist yet.
// Safe to call on every startup; a concurrent create by another
// instance is not an error.
func (r *Repo) EnsureIndex(ctx context.Context, hnsw HNSWConfig) error {
	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", indexName(), err)
	}
	if exists {
		return nil
	}

	if err := r.store.CreateIndex(ctx, buildIndex(hnsw)); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", indexName(), err)
	}
	return nil
}
