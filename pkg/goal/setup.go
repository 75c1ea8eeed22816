package goal

import (
	"errors"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
)

// Logger defines the interface for logging within the goal package
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=goal
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Dialect selects the DDL used by Migrate
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	defaultBatchSize   = 500
	defaultConcurrency = 4
)

// ErrNotFound is returned when no goal has the requested id
var ErrNotFound = errors.New("goal not found")

// Goal is a named objective
type Goal struct {
	ID   int64
	Name string
}

// Repository stores goals in the goal table. Every method runs its own
// pipeline invocation; nothing is held between calls.
type Repository struct {
	ops         *pipeline.Operations
	logger      Logger
	dialect     Dialect
	batchSize   int
	concurrency int
}

// Option configures a Repository
type Option func(*Repository)

// WithDialect picks the DDL flavour for Migrate. Defaults to DialectPostgres.
func WithDialect(d Dialect) Option {
	return func(r *Repository) {
		r.dialect = d
	}
}

// WithBatchSize caps the rows written by one insert statement in InsertMany
func WithBatchSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithConcurrency caps the lookups FindByIDs runs at once
func WithConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRepository creates a Repository on top of ops
func NewRepository(ops *pipeline.Operations, logger Logger, opts ...Option) *Repository {
	r := &Repository{
		ops:         ops,
		logger:      logger,
		dialect:     DialectPostgres,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
