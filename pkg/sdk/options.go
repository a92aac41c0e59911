package querymem

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "redis" or "memory"
	addrs    []string
	password string

	embedder Embedder

	dimensions      int
	hnswM           int
	hnswEFConstruct int

	minScore        float64
	defaultLimit    int
	maxLimit        int
	clickWeight     int64
	popularDaysBack int
	popularScanCap  int
	bestEffort      bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance
// with the search module loaded.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory configures the client to use the in-process store.
// All state is lost when the client is closed.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithEmbedder sets the text embedding provider. Required: every saved
// query is vectorized once at save time.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithDimensions sets the embedding vector dimension.
// Defaults to 1536 (text-embedding-3-small).
func WithDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.dimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=32, EFConstruct=400.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithMinScore sets the default similarity floor for Similar and
// Suggest. Defaults to 0.7.
func WithMinScore(score float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minScore = score
	})
}

// WithLimits sets the default and maximum result counts.
// Defaults: 10 and 100.
func WithLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithClickWeight sets the popularity contribution of one click
// relative to one repeat search. Defaults to 2.
func WithClickWeight(weight int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.clickWeight = weight
	})
}

// WithPopularWindow sets the trending window in days and the maximum
// number of records aggregated per call. Defaults: 7 days, 1000 records.
func WithPopularWindow(daysBack, scanCap int) Option {
	return optionFunc(func(c *clientConfig) {
		c.popularDaysBack = daysBack
		c.popularScanCap = scanCap
	})
}

// WithBestEffort makes Similar and Suggest return empty results instead
// of an error when the embedding provider or store fails.
func WithBestEffort() Option {
	return optionFunc(func(c *clientConfig) {
		c.bestEffort = true
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
