package pipeline

import (
	"context"
	"errors"
	"iter"
)

// Work is what a pipeline invocation runs on its connection. It yields result
// items lazily; the first non-nil error ends the sequence.
//
// The statements a Work declares are validated before any connection is opened.
type Work[T any] struct {
	statements []Statement
	run        func(ctx context.Context, conn Connection) iter.Seq2[T, error]
}

// NewWork wraps a custom run function. The statements listed are validated up
// front; statements built inside run are not.
func NewWork[T any](run func(ctx context.Context, conn Connection) iter.Seq2[T, error], statements ...Statement) Work[T] {
	return Work[T]{statements: statements, run: run}
}

// Statements returns the statements declared by w
func (w Work[T]) Statements() []Statement {
	return w.statements
}

func (w Work[T]) validate(style PlaceholderStyle) error {
	if w.run == nil {
		return newError(ErrStatement, StageBind, errors.New("work has nothing to run"))
	}
	for _, s := range w.statements {
		if err := s.Validate(style); err != nil {
			return err
		}
	}
	return nil
}

// Query executes stmt and maps every returned row with mapper
func Query[T any](stmt Statement, mapper RowMapper[T]) Work[T] {
	run := func(ctx context.Context, conn Connection) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			var zero T

			res, err := stmt.execute(ctx, conn)
			if err != nil {
				yield(zero, err)
				return
			}
			closed := false
			defer func() {
				if !closed {
					_ = res.Close()
				}
			}()

			meta := res.Metadata()
			for res.Next() {
				v, err := mapRow(mapper, res.Row(), meta)
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(v, nil) {
					return
				}
			}
			if err := res.Err(); err != nil {
				yield(zero, newError(ErrStatement, StageExecute, err))
				return
			}

			closed = true
			if err := res.Close(); err != nil {
				yield(zero, newError(ErrStatement, StageExecute, err))
			}
		}
	}
	return Work[T]{statements: []Statement{stmt}, run: run}
}

// Exec executes stmt and yields the number of affected rows
func Exec(stmt Statement) Work[int64] {
	run := func(ctx context.Context, conn Connection) iter.Seq2[int64, error] {
		return func(yield func(int64, error) bool) {
			res, err := stmt.execute(ctx, conn)
			if err != nil {
				yield(0, err)
				return
			}

			n, err := res.RowsAffected()
			closeErr := res.Close()
			if err != nil {
				yield(0, newError(ErrStatement, StageExecute, err))
				return
			}
			if closeErr != nil {
				yield(0, newError(ErrStatement, StageExecute, closeErr))
				return
			}
			yield(n, nil)
		}
	}
	return Work[int64]{statements: []Statement{stmt}, run: run}
}

// Concat runs works one after another on the same connection. A failing work
// stops the sequence; later works are not started.
func Concat[T any](works ...Work[T]) Work[T] {
	var statements []Statement
	for _, w := range works {
		statements = append(statements, w.statements...)
	}

	run := func(ctx context.Context, conn Connection) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			for _, w := range works {
				for v, err := range w.run(ctx, conn) {
					if !yield(v, err) || err != nil {
						return
					}
				}
			}
		}
	}
	return Work[T]{statements: statements, run: run}
}
