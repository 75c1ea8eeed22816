package postgres

import (
	"context"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
)

// Transaction runs fn inside one pipeline transaction on a connection taken
// from the current pool. It commits when fn returns nil and rolls back
// otherwise; the connection is released in both cases.
//
// Example usage:
//
//	err := pg.Transaction(ctx, func(ctx context.Context, s *pipeline.Session) error {
//		if _, err := s.Exec(ctx, pipeline.NewStatement("delete from goal")); err != nil {
//			return err
//		}
//		_, err := s.Exec(ctx, pipeline.NewStatement("insert into goal (name) values ($1)", "first"))
//		return err
//	})
func (p *Postgres) Transaction(ctx context.Context, fn func(ctx context.Context, s *pipeline.Session) error, opts ...pipeline.Option) error {
	return pipeline.Transact(ctx, p, fn, append([]pipeline.Option{pipeline.WithLogger(p.logger)}, opts...)...)
}
