package pipeline

import (
	"context"
	"slices"
	"strings"
)

// Operations bundles a connection source with invocation options and exposes
// the common single-statement operations. It holds no connection between calls.
type Operations struct {
	source ConnectionSource
	opts   []Option
	cfg    Config
}

// NewOperations creates Operations over source. opts apply to every call.
func NewOperations(source ConnectionSource, opts ...Option) *Operations {
	return &Operations{
		source: source,
		opts:   opts,
		cfg:    buildOptions(opts).cfg,
	}
}

// Source returns the connection source operations run against
func (o *Operations) Source() ConnectionSource {
	return o.source
}

// Options returns the options applied to every call, followed by extra
func (o *Operations) Options(extra ...Option) []Option {
	return append(slices.Clone(o.opts), extra...)
}

// Config returns the resolved pipeline configuration
func (o *Operations) Config() Config {
	return o.cfg
}

// Select runs sql with params outside a transaction and maps each row lazily
func Select[T any](ctx context.Context, o *Operations, sql string, mapper RowMapper[T], params ...any) *Stream[T] {
	stmt := NewStatement(sql, params...)
	return ExecuteStatement(ctx, o.source, Query(stmt, mapper), o.Options(WithOperation(statementKind(sql)))...)
}

// Insert runs an insert and returns the generated key reported by the driver.
// Anything other than exactly one returned row fails with ErrCardinality.
func (o *Operations) Insert(ctx context.Context, sql string, params ...any) (int64, error) {
	stmt := NewStatement(sql, params...).ReturnGeneratedValues(o.cfg.GeneratedKeyColumn)
	return Single(ExecuteStatement(ctx, o.source, Query(stmt, Scalar[int64]()), o.Options(WithOperation("insert"))...))
}

// Update runs an update and returns the number of affected rows
func (o *Operations) Update(ctx context.Context, sql string, params ...any) (int64, error) {
	return o.exec(ctx, "update", sql, params)
}

// Delete runs a delete and returns the number of affected rows
func (o *Operations) Delete(ctx context.Context, sql string, params ...any) (int64, error) {
	return o.exec(ctx, "delete", sql, params)
}

// Transact runs fn inside a transaction on a connection from the source
func (o *Operations) Transact(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	return Transact(ctx, o.source, fn, o.Options(WithOperation("transaction"))...)
}

func (o *Operations) exec(ctx context.Context, operation, sql string, params []any) (int64, error) {
	stmt := NewStatement(sql, params...)
	return Single(ExecuteStatement(ctx, o.source, Exec(stmt), o.Options(WithOperation(operation))...))
}

// statementKind returns the lower-cased leading keyword of sql
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
