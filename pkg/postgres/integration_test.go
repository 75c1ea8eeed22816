package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aleph-Alpha/sqlpipe/internal/pgtest"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

// goalModel mirrors the goal table for AutoMigrate
type goalModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (goalModel) TableName() string { return "goal" }

func containerConfig(c *pgtest.Container) Config {
	return Config{
		Connection: Connection{
			Host:     c.Host,
			Port:     c.Port,
			User:     pgtest.User,
			Password: pgtest.Password,
			DbName:   pgtest.Database,
			SSLMode:  "disable",
		},
	}
}

func newPermissiveLogger(t *testing.T) *MockLogger {
	ctrl := gomock.NewController(t)
	mockLogger := NewMockLogger(ctrl)

	// Override Fatal to prevent test termination
	mockLogger.EXPECT().Fatal(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(msg string, err error, fields ...map[string]interface{}) {
			t.Logf("FATAL: %s, Error: %v", msg, err)
		}).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	return mockLogger
}

func count(t *testing.T, src pipeline.ConnectionSource) int64 {
	t.Helper()
	n, err := pipeline.Single(pipeline.ExecuteStatement(context.Background(), src,
		pipeline.Query(pipeline.NewStatement("select count(*) from goal"), pipeline.Scalar[int64]())))
	require.NoError(t, err)
	return n
}

func TestPostgresWithFXModule(t *testing.T) {
	container := pgtest.Start(t)
	ctx := context.Background()
	mockLogger := newPermissiveLogger(t)

	var pg *Postgres
	var source pipeline.ConnectionSource

	app := fxtest.New(t,
		fx.Provide(
			func() Config {
				return containerConfig(container)
			},
			func() Logger {
				return mockLogger
			},
		),
		FXModule,
		fx.Populate(&pg, &source),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, pg)
	require.NotNil(t, pg.DB())
	require.NoError(t, pg.Migrate(&goalModel{}))

	t.Run("DeleteAllInsertSelect", func(t *testing.T) {
		work := pipeline.Concat(
			pipeline.Exec(pipeline.NewStatement("delete from goal")),
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
			pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "second")),
		)
		_, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, source, work))
		require.NoError(t, err)

		names, err := pipeline.Collect(pipeline.ExecuteStatement(ctx, source,
			pipeline.Query(pipeline.NewStatement("select name from goal order by id"), pipeline.Scalar[string]())))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, names)
	})

	t.Run("ConstraintViolationLeavesNoTrace", func(t *testing.T) {
		before := count(t, source)

		err := pg.Transaction(ctx, func(ctx context.Context, s *pipeline.Session) error {
			if _, err := s.Exec(ctx, pipeline.NewStatement("insert into goal (name) values ($1)", "A")); err != nil {
				return err
			}
			_, err := s.Exec(ctx, pipeline.NewStatement("insert into goal (name) values ($1)", "first"))
			return err
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, pipeline.ErrStatement)
		assert.ErrorIs(t, TranslateError(err), ErrDuplicateKey)
		assert.Equal(t, CategoryConstraint, GetErrorCategory(err))
		assert.False(t, IsRetryable(err))
		assert.Equal(t, before, count(t, source))
	})

	t.Run("InsertReturnsGeneratedID", func(t *testing.T) {
		ops := pipeline.NewOperations(source)
		id, err := ops.Insert(ctx, "insert into goal (name) values ($1)", "generated")
		require.NoError(t, err)
		assert.Positive(t, id)

		name, err := pipeline.Single(pipeline.Select(ctx, ops, "select name from goal where id = $1", pipeline.Scalar[string](), id))
		require.NoError(t, err)
		assert.Equal(t, "generated", name)
	})

	t.Run("TypedNullBinding", func(t *testing.T) {
		n, err := pipeline.NewOperations(source).Update(ctx,
			"update goal set name = coalesce($1, name) where name = $2", pipeline.Null[string](), "generated")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("DDLInTransaction", func(t *testing.T) {
		_, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, source,
			pipeline.Exec(pipeline.NewStatement("create table ddl_probe (id serial primary key)"))))
		require.NoError(t, err)

		rows, err := pipeline.Single(pipeline.ExecuteStatement(ctx, source,
			pipeline.Query(pipeline.NewStatement("select count(*) from ddl_probe"), pipeline.Scalar[int64]())))
		require.NoError(t, err)
		assert.Zero(t, rows)
	})

	t.Run("CancellationReleasesConnection", func(t *testing.T) {
		sqlDB, err := pg.SQLDB()
		require.NoError(t, err)

		cctx, cancel := context.WithCancel(ctx)
		s := pipeline.ExecuteInTransaction(cctx, source,
			pipeline.Query(pipeline.NewStatement("select generate_series(1, 1000)"), pipeline.Scalar[int64]()))
		require.True(t, s.Next())
		cancel()
		for s.Next() {
		}

		assert.ErrorIs(t, s.Err(), context.Canceled)
		assert.Equal(t, pipeline.TxRolledBack, s.Disposition())
		require.NoError(t, s.Close())
		assert.Eventually(t, func() bool {
			return sqlDB.Stats().InUse == 0
		}, 5*time.Second, 50*time.Millisecond)
	})
}

func TestPostgresConnectionFailureRecovery(t *testing.T) {
	container := pgtest.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := NewPostgres(containerConfig(container), newPermissiveLogger(t))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, pg.GracefulShutdown())
	}()

	go pg.RetryConnection(ctx)

	before := pg.DB()
	pg.retryChanSignal <- errors.New("test connection error")

	assert.Eventually(t, func() bool {
		return pg.DB() != before
	}, 10*time.Second, 50*time.Millisecond)

	_, err = pipeline.Collect(pipeline.ExecuteStatement(ctx, pg,
		pipeline.Query(pipeline.NewStatement("select 1"), pipeline.Scalar[int64]())))
	assert.NoError(t, err)
}

func TestOpenAfterShutdown(t *testing.T) {
	container := pgtest.Start(t)

	pg, err := NewPostgres(containerConfig(container), newPermissiveLogger(t))
	require.NoError(t, err)
	require.NoError(t, pg.GracefulShutdown())
	require.NoError(t, pg.GracefulShutdown())

	_, err = pg.Open(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, pg.Migrate(&goalModel{}), ErrClosed)
}
