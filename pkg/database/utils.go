package database

import (
	"context"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/postgres"
)

// Open takes an exclusive connection from the configured source
func (d *Database) Open(ctx context.Context) (pipeline.Connection, error) {
	return d.source.Open(ctx)
}

// Type reports the configured database type
func (d *Database) Type() string {
	return d.kind
}

// Postgres returns the gorm client for TypePostgres and nil otherwise
func (d *Database) Postgres() *postgres.Postgres {
	return d.pg
}

// Source returns the driver-level ConnectionSource
func (d *Database) Source() pipeline.ConnectionSource {
	return d.source
}

// Close releases the pool. Calling it more than once returns the first result.
func (d *Database) Close() error {
	d.closeOnce.Do(func() {
		if d.closeFn != nil {
			d.closeErr = d.closeFn()
		}
		d.logger.Info("Database closed", d.closeErr, map[string]interface{}{"type": d.kind})
	})
	return d.closeErr
}
