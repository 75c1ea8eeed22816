package pipeline

import (
	"context"
	"reflect"
)

// The interfaces below are the capabilities the pipeline requires from a database
// driver. Implementations live in pkg/sqldriver (database/sql) and pkg/pgxdriver (pgx).

//go:generate mockgen -source=spi.go -destination=mock_spi.go -package=pipeline

// ConnectionSource hands out exclusively owned connections. Every connection it
// returns is closed exactly once by the pipeline invocation that opened it.
type ConnectionSource interface {
	Open(ctx context.Context) (Connection, error)
}

// Connection is one logical database session. It is never used by two pipeline
// invocations at the same time.
type Connection interface {
	BeginTransaction(ctx context.Context) error
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	CreateStatement(sql string) StatementBuilder
	Close(ctx context.Context) error
}

// StatementBuilder collects positional bindings for a single statement.
// Index 0 corresponds to the first placeholder.
type StatementBuilder interface {
	Bind(index int, value any) StatementBuilder
	BindNull(index int, declaredType reflect.Type) StatementBuilder
	ReturnGeneratedValues(columns ...string) StatementBuilder
	Execute(ctx context.Context) (Result, error)
}

// Result is the outcome of executing a statement. Rows are pulled with Next/Row in
// driver order. RowsAffected is meaningful for mutating statements.
type Result interface {
	RowsAffected() (int64, error)
	Metadata() RowMetadata
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Row is the current row of a Result. It is only valid until the next call to
// Result.Next.
type Row interface {
	Scan(dest ...any) error
	Get(column string, dest any) error
}

// ColumnMetadata describes one result column
type ColumnMetadata struct {
	Name         string
	DatabaseType string
	Nullable     bool
}

// RowMetadata describes the shape of every row in a Result
type RowMetadata struct {
	Columns []ColumnMetadata
}

// Index returns the position of the named column, or -1.
func (m RowMetadata) Index(name string) int {
	for i, c := range m.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}
