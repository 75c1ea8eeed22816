// Package pipeline executes parameterized SQL statements with guaranteed
// connection and transaction cleanup.
//
// A pipeline invocation opens one connection from a ConnectionSource, optionally
// begins a transaction, runs a Work against the connection and exposes the
// results as a lazy *Stream. Whatever happens to the stream (it is drained, a
// statement or row mapping fails, the caller's context is cancelled, or the
// caller stops early and calls Close) the transaction reaches exactly one of
// commit or rollback and the connection is closed exactly once before control
// returns to the caller.
//
// Basic Usage:
//
//	ops := pipeline.NewOperations(source, pipeline.WithLogger(log))
//
//	id, err := ops.Insert(ctx, "insert into goal (name) values ($1)", "x")
//
//	names := pipeline.Select(ctx, ops, "select name from goal order by id",
//		pipeline.Scalar[string]())
//	for name, err := range names.All() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(name)
//	}
//
// Transactions:
//
//	work := pipeline.Concat(
//		pipeline.Exec(pipeline.NewStatement("delete from goal")),
//		pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
//	)
//	counts, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, source, work))
//
// or, with heterogeneous statements:
//
//	err := pipeline.Transact(ctx, source, func(ctx context.Context, s *pipeline.Session) error {
//		_, err := s.Exec(ctx, pipeline.NewStatement("delete from goal"))
//		return err
//	})
//
// Binding:
//
// Statements are immutable. Bindings are positional and 0-based: index 0 fills
// $1 (or the first ?). A nil value, a nil pointer or pipeline.Null[T]() binds
// NULL with a declared type. The number of bindings is checked against the
// placeholders in the SQL text before any connection is opened; a mismatch fails
// with ErrBinding.
//
// Errors:
//
// All failures are *Error values carrying a kind (ErrConnection, ErrBinding,
// ErrStatement, ErrMapping, ErrTransaction, ErrCardinality), the stage at which
// they happened and the driver cause. A rollback or close failure that follows
// another error is attached to it rather than replacing it.
package pipeline
