package db

import "github.com/kailas-cloud/querymem/internal/domain/filter"

// KNNQuery describes a nearest-neighbor search with payload pre-filtering.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SortQuery describes a filtered scan sorted by a numeric payload field.
type SortQuery struct {
	IndexName    string
	Filters      filter.Expression
	SortField    string
	Desc         bool
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchEntry is a single hit: the record key, its score (cosine
// similarity for KNN, zero for scans), and the returned payload fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult holds search hits and the total match count.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
