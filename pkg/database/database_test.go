package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/postgres"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
)

func newQuietLogger(t *testing.T) *MockLogger {
	ctrl := gomock.NewController(t)
	l := NewMockLogger(ctrl)
	l.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	l.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	l.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	l.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	return l
}

func sqliteConfig(t *testing.T) Config {
	return Config{
		Type:   TypeSQLite,
		SQLite: &SQLiteConfig{Path: filepath.Join(t.TempDir(), "goals.db")},
	}
}

func roundTrip(t *testing.T, src pipeline.ConnectionSource, ddl ...string) {
	t.Helper()
	ctx := context.Background()

	var work []pipeline.Work[int64]
	for _, stmt := range ddl {
		work = append(work, pipeline.Exec(pipeline.NewStatement(stmt)))
	}
	work = append(work,
		pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
		pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "second")),
	)
	_, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, src, pipeline.Concat(work...)))
	require.NoError(t, err)

	names, err := pipeline.Collect(pipeline.ExecuteStatement(ctx, src,
		pipeline.Query(pipeline.NewStatement("select name from goal order by id"), pipeline.Scalar[string]())))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestSQLite(t *testing.T) {
	d, err := New(context.Background(), sqliteConfig(t), newQuietLogger(t))
	require.NoError(t, err)

	assert.Equal(t, TypeSQLite, d.Type())
	assert.Nil(t, d.Postgres())
	roundTrip(t, d, `create table goal (id integer primary key autoincrement, name text not null unique)`)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	_, err = d.Open(context.Background())
	assert.Error(t, err)
}

func TestSQLiteInMemory(t *testing.T) {
	d, err := New(context.Background(), Config{Type: TypeSQLite, SQLite: &SQLiteConfig{Path: ":memory:"}}, newQuietLogger(t))
	require.NoError(t, err)
	defer d.Close()

	roundTrip(t, d, `create table goal (id integer primary key autoincrement, name text not null unique)`)
}

func TestNewRejectsBadConfig(t *testing.T) {
	log := newQuietLogger(t)

	_, err := New(context.Background(), Config{Type: "oracle"}, log)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = New(context.Background(), Config{Type: TypePgx}, log)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Type: TypeSQLite}, log)
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	v := validator.New()
	pg := &postgres.Config{Connection: postgres.Connection{Host: "db", Port: "5432", User: "u", DbName: "goals"}}

	tests := []struct {
		name  string
		cfg   Config
		valid bool
	}{
		{"sqlite", Config{Type: TypeSQLite, SQLite: &SQLiteConfig{Path: "goals.db"}}, true},
		{"sqlite without path", Config{Type: TypeSQLite, SQLite: &SQLiteConfig{}}, false},
		{"sqlite section missing", Config{Type: TypeSQLite}, false},
		{"pgx", Config{Type: TypePgx, Postgres: pg, Isolation: IsolationSerializable}, true},
		{"pgx without postgres", Config{Type: TypePgx}, false},
		{"postgres host missing", Config{Type: TypePostgres, Postgres: &postgres.Config{}}, false},
		{"unknown type", Config{Type: "mysql", Postgres: pg}, false},
		{"unknown isolation", Config{Type: TypePostgresSQL, Postgres: pg, Isolation: "snapshot"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.cfg)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestIsolationMapping(t *testing.T) {
	level, ok := sqlIsolation(IsolationSerializable)
	assert.True(t, ok)
	assert.Equal(t, "Serializable", level.String())

	_, ok = sqlIsolation(IsolationDefault)
	assert.False(t, ok)

	assert.EqualValues(t, "repeatable read", pgxIsolation(IsolationRepeatableRead))
	assert.EqualValues(t, "", pgxIsolation(IsolationDefault))
}

func TestFXModuleSQLite(t *testing.T) {
	var src pipeline.ConnectionSource
	var d *Database

	app := fxtest.New(t,
		fx.Provide(
			func() Config { return sqliteConfig(t) },
			func() Logger { return newQuietLogger(t) },
		),
		FXModule,
		fx.Populate(&src, &d),
	)
	app.RequireStart()

	roundTrip(t, src, `create table goal (id integer primary key autoincrement, name text not null unique)`)

	app.RequireStop()
	_, err := d.Open(context.Background())
	assert.Error(t, err)
}
