// Package db defines the storage capability contract for query memory.
// Any conforming store works: the rueidis-backed production store or the
// in-memory brute-force store used by tests and local development.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	ClickUpdater
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchSort(ctx context.Context, q *SortQuery) (*SearchResult, error)
}

// ClickUpdater atomically applies click feedback to a stored record:
// the counter increment and the id append land together or not at all.
type ClickUpdater interface {
	ClickUpdate(ctx context.Context, key string, u ClickDelta) (bool, error)
}

// ClickDelta describes one click to fold into a record's hash fields.
type ClickDelta struct {
	CountField string // numeric field to increment by one
	ListField  string // field holding the separator-joined id list
	ResultID   string // id to append
	Separator  string // list separator (single rune, must not occur in ids)
}
