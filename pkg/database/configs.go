package database

import (
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/postgres"
)

const (
	// TypePostgres is the gorm client with health monitoring and reconnects
	TypePostgres = "postgres"
	// TypePgx is a pgxpool pool driven through pgxdriver
	TypePgx = "pgx"
	// TypePostgresSQL is database/sql over lib/pq
	TypePostgresSQL = "postgres-sql"
	// TypeSQLite is an embedded modernc.org/sqlite database
	TypeSQLite = "sqlite"
)

const (
	IsolationDefault        = ""
	IsolationReadCommitted  = "read_committed"
	IsolationRepeatableRead = "repeatable_read"
	IsolationSerializable   = "serializable"
)

const defaultBusyTimeout = 5 * time.Second

// Config selects and configures the ConnectionSource behind the pipeline
type Config struct {
	Type string `yaml:"type" koanf:"type" validate:"required,oneof=postgres pgx postgres-sql sqlite"`

	// Postgres is used by every type except sqlite
	Postgres *postgres.Config `yaml:"postgres" koanf:"postgres" validate:"required_unless=Type sqlite"`

	SQLite *SQLiteConfig `yaml:"sqlite" koanf:"sqlite" validate:"required_if=Type sqlite"`

	// Isolation is applied to pipeline transactions for the pgx and postgres-sql
	// types. The gorm-backed type uses the server default.
	Isolation string `yaml:"isolation" koanf:"isolation" validate:"omitempty,oneof=read_committed repeatable_read serializable"`
}

// SQLiteConfig locates the database file
type SQLiteConfig struct {
	// Path of the database file, or ":memory:" for a private in-memory database
	// served over a single connection
	Path string `yaml:"path" koanf:"path" validate:"required"`

	BusyTimeout time.Duration `yaml:"busy_timeout" koanf:"busy_timeout"`
}
