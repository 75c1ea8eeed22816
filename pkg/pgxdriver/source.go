package pgxdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrConnClosed is returned when a released connection is used
	ErrConnClosed = errors.New("connection is closed")

	// ErrTxInProgress is returned when a transaction is begun twice on one connection
	ErrTxInProgress = errors.New("transaction already in progress")

	// ErrNoTx is returned when commit or rollback is issued without a transaction
	ErrNoTx = errors.New("no transaction in progress")
)

// Source acquires exclusive connections from a pgx pool
type Source struct {
	pool      *pgxpool.Pool
	txOptions pgx.TxOptions
}

// Option configures a Source
type Option func(*Source)

// WithTxOptions sets the isolation level, access mode and deferrable mode used
// for transactions
func WithTxOptions(opts pgx.TxOptions) Option {
	return func(s *Source) {
		s.txOptions = opts
	}
}

// NewSource creates a Source over pool. The pool is owned by the caller.
func NewSource(pool *pgxpool.Pool, opts ...Option) *Source {
	s := &Source{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pool returns the underlying pool
func (s *Source) Pool() *pgxpool.Pool {
	return s.pool
}

// Open acquires a connection from the pool
func (s *Source) Open(ctx context.Context) (pipeline.Connection, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &Conn{conn: conn, txOptions: s.txOptions}, nil
}

// Conn is a pipeline.Connection backed by an acquired *pgxpool.Conn
type Conn struct {
	conn      *pgxpool.Conn
	tx        pgx.Tx
	txOptions pgx.TxOptions
}

func (c *Conn) BeginTransaction(ctx context.Context) error {
	if c.conn == nil {
		return ErrConnClosed
	}
	if c.tx != nil {
		return ErrTxInProgress
	}
	tx, err := c.conn.BeginTx(ctx, c.txOptions)
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
	if err := c.tx.Commit(ctx); err != nil {
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
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (c *Conn) CreateStatement(query string) pipeline.StatementBuilder {
	return &statement{conn: c, query: query}
}

// Close releases the connection back to the pool, rolling back a transaction
// that is still open. Close is idempotent.
func (c *Conn) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	var err error
	if c.tx != nil {
		err = c.tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrTxClosed) {
			err = nil
		}
		c.tx = nil
	}
	c.conn.Release()
	c.conn = nil
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (c *Conn) querier() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}
