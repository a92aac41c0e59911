// Package record defines the QueryRecord aggregate: one remembered search
// query with its embedding and engagement stats.
package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/querymem/internal/domain"
)

// Record is a stored past search query (immutable value object).
// Only the click fields change after creation, and only through the
// feedback path.
type Record struct {
	id          string
	queryText   string
	embedding   []float32
	tenantID    string
	userID      string
	timestamp   time.Time
	resultCount int
	sources     []string
	clickCount  int64
	clickedIDs  []string
	metadata    map[string]any
}

// New validates and creates a Record with zero click stats.
func New(
	id, queryText string, embedding []float32, scope domain.Scope,
	timestamp time.Time, resultCount int, sources []string, metadata map[string]any,
) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record id is required: %w", domain.ErrValidation)
	}
	text := strings.TrimSpace(queryText)
	if text == "" {
		return Record{}, fmt.Errorf("query text is required: %w", domain.ErrValidation)
	}
	if len(embedding) == 0 {
		return Record{}, fmt.Errorf("embedding is required: %w", domain.ErrValidation)
	}
	if resultCount < 0 {
		return Record{}, fmt.Errorf("result_count must not be negative: %w", domain.ErrValidation)
	}

	return Record{
		id:          id,
		queryText:   text,
		embedding:   embedding,
		tenantID:    scope.TenantID(),
		userID:      scope.UserID(),
		timestamp:   timestamp,
		resultCount: resultCount,
		sources:     cloneStrings(sources),
		metadata:    cloneMap(metadata),
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, queryText string, embedding []float32, tenantID, userID string,
	timestamp time.Time, resultCount int, sources []string,
	clickCount int64, clickedIDs []string, metadata map[string]any,
) Record {
	return Record{
		id: id, queryText: queryText, embedding: embedding,
		tenantID: tenantID, userID: userID, timestamp: timestamp,
		resultCount: resultCount, sources: sources,
		clickCount: clickCount, clickedIDs: clickedIDs, metadata: metadata,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// QueryText returns the raw query string.
func (r *Record) QueryText() string { return r.queryText }

// NormalizedText returns the query text in grouping form.
func (r *Record) NormalizedText() string { return Normalize(r.queryText) }

// Embedding returns the query embedding vector.
func (r *Record) Embedding() []float32 { return r.embedding }

// TenantID returns the tenant isolation key.
func (r *Record) TenantID() string { return r.tenantID }

// UserID returns the issuing user, empty when unknown.
func (r *Record) UserID() string { return r.userID }

// Timestamp returns the creation time.
func (r *Record) Timestamp() time.Time { return r.timestamp }

// ResultCount returns the number of results the search returned.
func (r *Record) ResultCount() int { return r.resultCount }

// Sources returns the source identifiers that were searched.
func (r *Record) Sources() []string { return r.sources }

// ClickCount returns the monotonically increasing click counter.
func (r *Record) ClickCount() int64 { return r.clickCount }

// ClickedResultIDs returns the ordered list of clicked result ids.
// Duplicates are permitted: the list reflects repeated engagement.
func (r *Record) ClickedResultIDs() []string { return r.clickedIDs }

// Metadata returns the open metadata mapping.
func (r *Record) Metadata() map[string]any { return r.metadata }

// Match pairs a retrieved record with its similarity score.
type Match struct {
	Record Record
	Score  float64
}

// Normalize maps query text to its grouping form: whitespace collapsed
// and case folded. Two queries with equal normalized forms count as the
// same query for popularity and click feedback.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
