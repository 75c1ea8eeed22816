package pgxdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aleph-Alpha/sqlpipe/internal/pgtest"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T) *Source {
	t.Helper()
	container := pgtest.Start(t)

	pool, err := pgxpool.New(context.Background(), container.URL())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(context.Background(),
		`create table goal (id bigserial primary key, name text not null unique, note text)`)
	require.NoError(t, err)
	return NewSource(pool)
}

func countGoals(t *testing.T, src pipeline.ConnectionSource) int64 {
	t.Helper()
	n, err := pipeline.Single(pipeline.ExecuteStatement(context.Background(), src,
		pipeline.Query(pipeline.NewStatement("select count(*) from goal"), pipeline.Scalar[int64]())))
	require.NoError(t, err)
	return n
}

func TestPgxPipeline(t *testing.T) {
	src := newTestSource(t)
	ctx := context.Background()
	ops := pipeline.NewOperations(src)

	t.Run("DeleteAllInsertSelect", func(t *testing.T) {
		work := pipeline.Concat(
			pipeline.Exec(pipeline.NewStatement("delete from goal")),
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "second")),
		)
		counts, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, src, work))
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 1, 1}, counts)

		names, err := pipeline.Collect(pipeline.Select(ctx, ops, "select name from goal order by id", pipeline.Scalar[string]()))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, names)
	})

	t.Run("ConstraintViolationLeavesNoTrace", func(t *testing.T) {
		before := countGoals(t, src)

		work := pipeline.Concat(
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "A")),
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
		)
		_, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, src, work))

		require.Error(t, err)
		assert.ErrorIs(t, err, pipeline.ErrStatement)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23505", pgErr.Code)
		assert.Equal(t, before, countGoals(t, src))
	})

	t.Run("InsertReturnsGeneratedID", func(t *testing.T) {
		id, err := ops.Insert(ctx, "insert into goal (name) values ($1)", "generated")
		require.NoError(t, err)
		assert.Positive(t, id)

		name, err := pipeline.Single(pipeline.Select(ctx, ops, "select name from goal where id = $1", pipeline.Scalar[string](), id))
		require.NoError(t, err)
		assert.Equal(t, "generated", name)
	})

	t.Run("ReturningLikeColumnStillGetsGeneratedID", func(t *testing.T) {
		_, err := src.Pool().Exec(ctx, `create table goal_audit (id bigserial primary key, returning_at timestamptz not null)`)
		require.NoError(t, err)

		id, err := ops.Insert(ctx, "insert into goal_audit (returning_at) values ($1)", time.Now())
		require.NoError(t, err)
		assert.Positive(t, id)
	})

	t.Run("DeferredViolationFailsOnlyAtCommit", func(t *testing.T) {
		_, err := src.Pool().Exec(ctx, `create table goal_deferred (name text unique deferrable initially deferred)`)
		require.NoError(t, err)

		work := pipeline.Concat(
			pipeline.Exec(pipeline.NewStatement("insert into goal_deferred (name) values ($1)", "twice")),
			pipeline.Exec(pipeline.NewStatement("insert into goal_deferred (name) values ($1)", "twice")),
		)
		_, err = pipeline.Collect(pipeline.ExecuteInTransaction(ctx, src, work))

		require.Error(t, err)
		assert.ErrorIs(t, err, pipeline.ErrTransaction)
		assert.False(t, errors.Is(err, ErrNoTx))
		stage, _ := pipeline.StageOf(err)
		assert.Equal(t, pipeline.StageCommit, stage)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23505", pgErr.Code)
		assert.Zero(t, src.Pool().Stat().AcquiredConns())
	})

	t.Run("TypedNullAndColumnMetadata", func(t *testing.T) {
		_, err := ops.Update(ctx, "update goal set note = $1 where name = $2", pipeline.Null[string](), "generated")
		require.NoError(t, err)

		type noted struct {
			Name string
			Note *string
			Type string
		}
		mapper := func(row pipeline.Row, meta pipeline.RowMetadata) (noted, error) {
			var n noted
			if err := row.Get("note", &n.Note); err != nil {
				return n, err
			}
			if err := row.Get("name", &n.Name); err != nil {
				return n, err
			}
			n.Type = meta.Columns[meta.Index("name")].DatabaseType
			return n, nil
		}
		got, err := pipeline.Single(pipeline.Select(ctx, ops, "select id, name, note from goal where name = $1", mapper, "generated"))
		require.NoError(t, err)
		assert.Equal(t, "generated", got.Name)
		assert.Nil(t, got.Note)
		assert.Equal(t, "text", got.Type)
	})

	t.Run("ConnectionsReleased", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			s := pipeline.ExecuteInTransaction(ctx, src,
				pipeline.Query(pipeline.NewStatement("select generate_series(1, $1::int)", 100), pipeline.Scalar[int32]()))
			require.True(t, s.Next())
			require.NoError(t, s.Close())
			assert.Equal(t, pipeline.TxRolledBack, s.Disposition())
		}
		assert.Zero(t, src.Pool().Stat().AcquiredConns())
	})

	t.Run("Cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		s := pipeline.ExecuteInTransaction(cctx, src,
			pipeline.Query(pipeline.NewStatement("select generate_series(1, 100000)"), pipeline.Scalar[int32]()))
		require.True(t, s.Next())
		cancel()
		for s.Next() {
		}

		assert.ErrorIs(t, s.Err(), context.Canceled)
		assert.Eventually(t, func() bool {
			return src.Pool().Stat().AcquiredConns() == 0
		}, 5*time.Second, 50*time.Millisecond)
	})

	t.Run("SerializableTransactions", func(t *testing.T) {
		serializable := NewSource(src.Pool(), WithTxOptions(pgx.TxOptions{IsoLevel: pgx.Serializable}))
		level, err := pipeline.Single(pipeline.ExecuteInTransaction(ctx, serializable,
			pipeline.Query(pipeline.NewStatement("show transaction_isolation"), pipeline.Scalar[string]())))
		require.NoError(t, err)
		assert.Equal(t, "serializable", level)
	})
}
