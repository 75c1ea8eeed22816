package postgres

import (
	"database/sql"
	"errors"

	"gorm.io/gorm"
)

// ErrClosed is returned once GracefulShutdown has released the pool
var ErrClosed = errors.New("postgres client is shut down")

// DB returns the underlying GORM DB client, or nil after shutdown.
// This is for cases where direct access to GORM is needed.
func (p *Postgres) DB() *gorm.DB {
	return p.client.Load()
}

// SQLDB returns the *sql.DB backing the current GORM client
func (p *Postgres) SQLDB() (*sql.DB, error) {
	db := p.DB()
	if db == nil {
		return nil, ErrClosed
	}
	return db.DB()
}
