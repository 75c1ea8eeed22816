package postgres

import (
	"context"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/sqldriver"
)

var _ pipeline.ConnectionSource = (*Postgres)(nil)

// Open takes an exclusive connection from the current pool. After a reconnect
// new connections come from the replacement pool.
func (p *Postgres) Open(ctx context.Context) (pipeline.Connection, error) {
	sqlDB, err := p.SQLDB()
	if err != nil {
		return nil, err
	}
	conn, err := sqldriver.NewSource(sqlDB).Open(ctx)
	if err != nil {
		return nil, TranslateError(err)
	}
	return conn, nil
}
