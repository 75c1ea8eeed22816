package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
)

var (
	// ErrConnClosed is returned when a closed connection is used
	ErrConnClosed = errors.New("connection is closed")

	// ErrTxInProgress is returned when a transaction is begun twice on one connection
	ErrTxInProgress = errors.New("transaction already in progress")

	// ErrNoTx is returned when commit or rollback is issued without a transaction
	ErrNoTx = errors.New("no transaction in progress")
)

// Source opens exclusive connections from a *sql.DB pool. Each Open reserves one
// physical connection with (*sql.DB).Conn; closing it returns the connection to
// the pool.
type Source struct {
	db        *sql.DB
	txOptions *sql.TxOptions
}

// Option configures a Source
type Option func(*Source)

// WithTxOptions sets the isolation level and read-only flag used for transactions
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(s *Source) {
		s.txOptions = opts
	}
}

// NewSource creates a Source over db. The pool is owned by the caller.
func NewSource(db *sql.DB, opts ...Option) *Source {
	s := &Source{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying pool
func (s *Source) DB() *sql.DB {
	return s.db
}

// Open reserves a connection from the pool
func (s *Source) Open(ctx context.Context) (pipeline.Connection, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{conn: conn, txOptions: s.txOptions}, nil
}

// Conn is a pipeline.Connection backed by a reserved *sql.Conn
type Conn struct {
	conn      *sql.Conn
	tx        *sql.Tx
	txOptions *sql.TxOptions
	closed    bool
}

func (c *Conn) BeginTransaction(ctx context.Context) error {
	if c.closed {
		return ErrConnClosed
	}
	if c.tx != nil {
		return ErrTxInProgress
	}
	// database/sql rolls a transaction back when its context ends; the pipeline
	// issues the rollback itself, after the caller's context may be gone.
	tx, err := c.conn.BeginTx(context.WithoutCancel(ctx), c.txOptions)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *Conn) CommitTransaction(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	// A failed commit ends the transaction too. tx stays set so the rollback
	// that follows is a no-op.
	if err := c.tx.Commit(); err != nil {
		return err
	}
	c.tx = nil
	return nil
}

func (c *Conn) RollbackTransaction(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (c *Conn) CreateStatement(query string) pipeline.StatementBuilder {
	return &statement{conn: c, query: query}
}

// Close returns the connection to the pool. A transaction still open at this
// point is rolled back by database/sql. Close is idempotent.
func (c *Conn) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.conn.Close()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *Conn) queryer() queryer {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}
