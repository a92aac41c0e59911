package querymem

import "time"

// SaveQueryRequest saves one executed search query.
type SaveQueryRequest struct {
	Query           string
	TenantID        string
	UserID          string
	ResultCount     int
	SourcesSearched []string
	Metadata        map[string]any
}

// SimilarRequest looks up semantically similar past queries.
// Zero Limit falls back to the client default; nil MinScore falls back
// to the client default, an explicit 0 disables the floor.
type SimilarRequest struct {
	Query    string
	TenantID string
	UserID   string
	Limit    int
	MinScore *float64
}

// HistoryRequest lists recent queries, newest first. Zero Limit falls
// back to the client default; zero DaysBack means the full history.
type HistoryRequest struct {
	TenantID string
	UserID   string
	Limit    int
	DaysBack int
}

// PopularRequest ranks queries by search and click frequency
// within a window.
type PopularRequest struct {
	TenantID string
	UserID   string
	Limit    int
	DaysBack int
}

// ClickRequest attributes a result click to the latest matching query.
type ClickRequest struct {
	Query    string
	TenantID string
	UserID   string
	ResultID string
}

// QueryRecord is one remembered search query.
type QueryRecord struct {
	ID               string
	Query            string
	Timestamp        time.Time
	ResultCount      int
	SourcesSearched  []string
	ClickCount       int64
	ClickedResultIDs []string
	Metadata         map[string]any
}

// Match is a similarity hit: a record with its cosine similarity score.
type Match struct {
	QueryRecord
	Score float64
}

// PopularEntry is one trending query with its aggregated stats.
type PopularEntry struct {
	Query    string
	Count    int
	Clicks   int64
	Score    int64
	Sources  []string
	LastSeen time.Time
}
