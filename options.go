package recordops

import (
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Defaults for query pagination.
const (
	DefaultLimit = 20
	DefaultMax   = 1000
)

// Option configures a Builder.
type Option func(*builderConfig)

type builderConfig struct {
	collection   string
	scopeFns     []ScopeFunc
	defaultLimit int
	maxLimit     int
	parallelSave bool
	newID        func() string

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultBuilderConfig() builderConfig {
	return builderConfig{
		defaultLimit: DefaultLimit,
		maxLimit:     DefaultMax,
	}
}

// WithCollection names the collection in scopes, logs and metrics.
func WithCollection(name string) Option {
	return func(c *builderConfig) { c.collection = name }
}

// WithScope adds a ScopeFunc. Scope functions run in the order given.
func WithScope(fn ScopeFunc) Option {
	return func(c *builderConfig) { c.scopeFns = append(c.scopeFns, fn) }
}

// WithDefaultLimit sets the page size used when a query sets none.
// Default: 20.
func WithDefaultLimit(n int) Option {
	return func(c *builderConfig) {
		if n > 0 {
			c.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the page size of queries. Default: 1000.
func WithMaxLimit(n int) Option {
	return func(c *builderConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithParallelSave runs the create and update mutations of Save
// concurrently. By default creates finish before updates start.
func WithParallelSave() Option {
	return func(c *builderConfig) { c.parallelSave = true }
}

// WithIDGenerator assigns ids from fn to saved records that have none.
func WithIDGenerator(fn func() string) Option {
	return func(c *builderConfig) { c.newID = fn }
}

// WithUUIDs assigns random UUIDs to saved records that have no id.
func WithUUIDs() Option {
	return WithIDGenerator(uuid.NewString)
}

// WithLogger enables structured logging of operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return func(c *builderConfig) { c.logger = l }
}

// WithPrometheus registers operation counts and durations on reg.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(c *builderConfig) { c.metricsReg = reg }
}
