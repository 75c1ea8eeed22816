package pipeline

import (
	"context"
	"fmt"
	"iter"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Stream is the lazy result of a pipeline invocation.
//
// Nothing happens until the first call to Next: the connection is opened, the
// transaction begun and the work started at that point. Rows are pulled from the
// driver one at a time. When the sequence ends, fails, or is closed early, the
// transaction is committed or rolled back and the connection is closed, exactly
// once, before Next returns false or Close returns.
//
// A transactional Stream commits only when it has been consumed to the end
// without error. Closing it earlier rolls the transaction back.
//
// A Stream is not safe for concurrent use.
type Stream[T any] struct {
	ctx           context.Context
	source        ConnectionSource
	work          Work[T]
	opts          *options
	transactional bool

	conn    Connection
	tx      *txScope
	next    func() (T, error, bool)
	stop    func()
	current T
	err     error
	started bool
	done    bool

	span  trace.Span
	begin time.Time
	items int64
}

func newStream[T any](ctx context.Context, source ConnectionSource, work Work[T], transactional bool, opts []Option) *Stream[T] {
	s := &Stream[T]{
		ctx:           ctx,
		source:        source,
		work:          work,
		opts:          buildOptions(opts),
		transactional: transactional,
	}
	if err := work.validate(s.opts.cfg.Placeholders); err != nil {
		s.started, s.done = true, true
		s.err = err
		s.observe()
	}
	return s
}

// Next advances to the next item. It returns false when the sequence is
// exhausted or has failed; Err distinguishes the two.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}
	if !s.started {
		s.started = true
		if !s.open() {
			return false
		}
	}
	if err := s.ctx.Err(); err != nil {
		s.finish(newError(ErrStatement, StageExecute, err), false)
		return false
	}

	v, err, ok := s.pull()
	switch {
	case !ok:
		s.finish(nil, false)
		return false
	case err != nil:
		s.finish(asPipelineError(err, ErrStatement, StageExecute), false)
		return false
	}

	s.current = v
	s.items++
	return true
}

// pull fetches the next item from the work, releasing the connection before
// re-raising if the work panics.
func (s *Stream[T]) pull() (v T, err error, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.finish(newError(ErrStatement, StageExecute, fmt.Errorf("panic: %v", r)), false)
			panic(r)
		}
	}()
	return s.next()
}

// Value returns the item produced by the last successful call to Next
func (s *Stream[T]) Value() T {
	return s.current
}

// Err returns the error that ended the sequence, including any rollback or close
// failure that followed it.
func (s *Stream[T]) Err() error {
	return s.err
}

// Disposition returns the state of the transaction attached to the stream.
// Non-transactional streams always report TxNotStarted.
func (s *Stream[T]) Disposition() TxState {
	if s.tx == nil {
		return TxNotStarted
	}
	return s.tx.state
}

// Close abandons the stream. If the sequence was not exhausted, an active
// transaction is rolled back and the connection closed. Cleanup failures are
// returned and logged. Close is safe to call more than once.
func (s *Stream[T]) Close() error {
	if s.done {
		return nil
	}
	if !s.started {
		s.started, s.done = true, true
		return nil
	}

	s.finish(nil, true)
	if s.err != nil {
		s.opts.logger.Warn("cleanup of abandoned pipeline failed", s.err, s.logFields())
	}
	return s.err
}

// All returns the remaining items as a range-over-func sequence. Breaking out of
// the loop closes the stream. A failure is delivered as a final (zero, err) pair.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.current, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

func (s *Stream[T]) open() bool {
	s.begin = time.Now()
	s.ctx, s.span = s.opts.tracer.Start(s.ctx, "pipeline."+s.mode(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.operation", s.opts.operation),
			attribute.Bool("db.pipeline.transactional", s.transactional),
		))

	conn, err := s.source.Open(s.ctx)
	if err != nil {
		s.finish(newError(ErrConnection, StageConnect, err), false)
		return false
	}
	s.conn = conn

	if s.transactional {
		s.tx = newTxScope(conn)
		if err := s.tx.begin(s.ctx); err != nil {
			s.finish(err, false)
			return false
		}
	}

	s.next, s.stop = iter.Pull2(s.work.run(s.ctx, withStatementLog(conn, s.opts)))
	return true
}

// finish drives the invocation to its terminal state: stop the work, commit or
// roll back, close the connection. Cleanup runs on a context detached from the
// caller's cancellation and bounded by the configured cleanup timeout.
func (s *Stream[T]) finish(cause error, abandoned bool) {
	s.done = true
	if s.stop != nil {
		s.stop()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.opts.cfg.CleanupTimeout)
	defer cancel()

	var cleanup []error
	if s.tx.active() {
		if cause == nil && !abandoned {
			cause = s.tx.commit(ctx)
		}
		if cause != nil || abandoned {
			if err := s.tx.rollback(ctx); err != nil {
				cleanup = append(cleanup, err)
			}
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(ctx); err != nil {
			cleanup = append(cleanup, newError(ErrConnection, StageClose, err))
		}
	}

	s.err = withCleanup(cause, cleanup)
	s.observe()
}

func (s *Stream[T]) mode() string {
	if s.transactional {
		return "execute_in_transaction"
	}
	return "execute_statement"
}
