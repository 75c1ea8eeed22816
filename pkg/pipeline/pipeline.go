package pipeline

import (
	"context"
	"iter"
)

// ExecuteStatement runs work on a freshly opened connection without a
// transaction. The connection is opened on the first call to Next and closed
// when the stream is exhausted, fails or is closed.
func ExecuteStatement[T any](ctx context.Context, source ConnectionSource, work Work[T], opts ...Option) *Stream[T] {
	return newStream(ctx, source, work, false, opts)
}

// ExecuteInTransaction runs work inside a transaction on a freshly opened
// connection. The commit is issued only after the whole stream has been consumed
// without error; any failure, cancellation or early close rolls back before the
// connection is closed and before the error is reported.
func ExecuteInTransaction[T any](ctx context.Context, source ConnectionSource, work Work[T], opts ...Option) *Stream[T] {
	return newStream(ctx, source, work, true, opts)
}

// Session gives a Transact callback access to the transaction's connection
type Session struct {
	conn Connection
	opts *options
}

// Exec validates and executes stmt, returning the affected row count
func (s *Session) Exec(ctx context.Context, stmt Statement) (int64, error) {
	if err := stmt.Validate(s.opts.cfg.Placeholders); err != nil {
		return 0, err
	}
	for n, err := range Exec(stmt).run(ctx, s.conn) {
		return n, err
	}
	return 0, nil
}

// QueryAll validates and executes stmt inside the session and maps every row
func QueryAll[T any](ctx context.Context, s *Session, stmt Statement, mapper RowMapper[T]) ([]T, error) {
	if err := stmt.Validate(s.opts.cfg.Placeholders); err != nil {
		return nil, err
	}
	var out []T
	for v, err := range Query(stmt, mapper).run(ctx, s.conn) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Transact runs fn inside a transaction. The transaction commits if fn returns
// nil and rolls back otherwise; the error returned by fn is reported together
// with any rollback or close failure.
func Transact(ctx context.Context, source ConnectionSource, fn func(ctx context.Context, s *Session) error, opts ...Option) error {
	o := buildOptions(opts)
	work := NewWork(func(ctx context.Context, conn Connection) iter.Seq2[struct{}, error] {
		return func(yield func(struct{}, error) bool) {
			if err := fn(ctx, &Session{conn: conn, opts: o}); err != nil {
				yield(struct{}{}, err)
			}
		}
	})

	_, err := Collect(ExecuteInTransaction(ctx, source, work, opts...))
	return err
}
