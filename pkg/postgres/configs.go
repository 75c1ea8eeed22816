package postgres

import (
	"fmt"
	"time"
)

const (
	defaultMaxOpenConns    = 50
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = time.Minute
)

// Config defines the top-level configuration structure for the Postgres client
type Config struct {
	Connection        Connection        `yaml:"connection" koanf:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details" koanf:"connection_details"`
}

// Connection holds the settings needed to reach the database server
type Connection struct {
	Host     string `yaml:"host" envconfig:"POSTGRES_HOST" koanf:"host" validate:"required"`
	Port     string `yaml:"port" envconfig:"POSTGRES_PORT" koanf:"port" validate:"required"`
	User     string `yaml:"user" envconfig:"POSTGRES_USER" koanf:"user" validate:"required"`
	Password string `yaml:"password" envconfig:"POSTGRES_PASSWORD" koanf:"password"`
	DbName   string `yaml:"db_name" envconfig:"POSTGRES_DB" koanf:"db_name" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"POSTGRES_SSL_MODE" koanf:"ssl_mode"`
}

// ConnectionDetails tunes the connection pool. Zero values fall back to 50 open,
// 25 idle and a one minute lifetime.
type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"POSTGRES_MAX_OPEN_CONNS" koanf:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"POSTGRES_MAX_IDLE_CONNS" koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"POSTGRES_CONN_MAX_LIFETIME" koanf:"conn_max_lifetime"`
}

// DSN renders the key/value connection string understood by pgx and lib/pq
func (c Connection) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DbName, sslMode)
}

func (d ConnectionDetails) withDefaults() ConnectionDetails {
	if d.MaxOpenConns == 0 {
		d.MaxOpenConns = defaultMaxOpenConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = defaultConnMaxLifetime
	}
	return d
}
