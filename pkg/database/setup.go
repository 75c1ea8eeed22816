package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pgxdriver"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/postgres"
	"github.com/Aleph-Alpha/sqlpipe/pkg/sqldriver"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Logger defines the interface for logging within the database package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=database
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

const pingTimeout = 5 * time.Second

// ErrUnknownType is returned for a Config.Type outside the supported set
var ErrUnknownType = errors.New("unknown database type")

// Database is the pipeline.ConnectionSource chosen by Config.Type together
// with the pool that backs it.
type Database struct {
	kind      string
	source    pipeline.ConnectionSource
	pg        *postgres.Postgres
	closeFn   func() error
	closeOnce sync.Once
	closeErr  error
	logger    Logger
}

var _ pipeline.ConnectionSource = (*Database)(nil)

// New connects to the configured database and verifies it is reachable
func New(ctx context.Context, cfg Config, logger Logger) (*Database, error) {
	d := &Database{kind: cfg.Type, logger: logger}

	var err error
	switch cfg.Type {
	case TypePostgres:
		err = d.openGorm(cfg)
	case TypePgx:
		err = d.openPgx(ctx, cfg)
	case TypePostgresSQL:
		err = d.openLibPQ(ctx, cfg)
	case TypeSQLite:
		err = d.openSQLite(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("error in connecting to %s database: %w", cfg.Type, err)
	}

	logger.Info("Database ready", nil, map[string]interface{}{
		"type":      cfg.Type,
		"isolation": cfg.Isolation,
	})
	return d, nil
}

func (d *Database) openGorm(cfg Config) error {
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is missing")
	}
	pg, err := postgres.NewPostgres(*cfg.Postgres, d.logger)
	if err != nil {
		return err
	}
	d.pg = pg
	d.source = pg
	d.closeFn = pg.GracefulShutdown
	return nil
}

func (d *Database) openPgx(ctx context.Context, cfg Config) error {
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is missing")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.Connection.DSN())
	if err != nil {
		return err
	}
	if n := cfg.Postgres.ConnectionDetails.MaxOpenConns; n > 0 {
		poolCfg.MaxConns = int32(n)
	}
	if lifetime := cfg.Postgres.ConnectionDetails.ConnMaxLifetime; lifetime > 0 {
		poolCfg.MaxConnLifetime = lifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return postgres.TranslateError(err)
	}

	var opts []pgxdriver.Option
	if level := pgxIsolation(cfg.Isolation); level != "" {
		opts = append(opts, pgxdriver.WithTxOptions(pgx.TxOptions{IsoLevel: level}))
	}
	d.source = pgxdriver.NewSource(pool, opts...)
	d.closeFn = func() error {
		pool.Close()
		return nil
	}
	return nil
}

func (d *Database) openLibPQ(ctx context.Context, cfg Config) error {
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is missing")
	}
	db, err := sql.Open("postgres", cfg.Postgres.Connection.DSN())
	if err != nil {
		return err
	}
	details := cfg.Postgres.ConnectionDetails
	if details.MaxOpenConns > 0 {
		db.SetMaxOpenConns(details.MaxOpenConns)
	}
	if details.MaxIdleConns > 0 {
		db.SetMaxIdleConns(details.MaxIdleConns)
	}
	if details.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(details.ConnMaxLifetime)
	}
	return d.useSQL(ctx, db, cfg.Isolation, postgres.TranslateError)
}

func (d *Database) openSQLite(ctx context.Context, cfg Config) error {
	if cfg.SQLite == nil {
		return errors.New("sqlite configuration is missing")
	}
	busy := cfg.SQLite.BusyTimeout
	if busy <= 0 {
		busy = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", cfg.SQLite.Path, busy.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	if cfg.SQLite.Path == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}
	return d.useSQL(ctx, db, "", func(err error) error { return err })
}

func (d *Database) useSQL(ctx context.Context, db *sql.DB, isolation string, translate func(error) error) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return translate(err)
	}

	var opts []sqldriver.Option
	if level, ok := sqlIsolation(isolation); ok {
		opts = append(opts, sqldriver.WithTxOptions(&sql.TxOptions{Isolation: level}))
	}
	d.source = sqldriver.NewSource(db, opts...)
	d.closeFn = db.Close
	return nil
}

func pgxIsolation(level string) pgx.TxIsoLevel {
	switch level {
	case IsolationReadCommitted:
		return pgx.ReadCommitted
	case IsolationRepeatableRead:
		return pgx.RepeatableRead
	case IsolationSerializable:
		return pgx.Serializable
	default:
		return ""
	}
}

func sqlIsolation(level string) (sql.IsolationLevel, bool) {
	switch level {
	case IsolationReadCommitted:
		return sql.LevelReadCommitted, true
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead, true
	case IsolationSerializable:
		return sql.LevelSerializable, true
	default:
		return sql.LevelDefault, false
	}
}
