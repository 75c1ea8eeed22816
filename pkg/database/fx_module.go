package database

import (
	"context"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/postgres"
	"go.uber.org/fx"
)

// FXModule provides *Database and exposes it as the pipeline.ConnectionSource.
// Do not combine it with postgres.FXModule; for the postgres type this module
// already runs the gorm client's monitor and reconnect loops.
var FXModule = fx.Module("database",
	fx.Provide(
		NewDatabaseWithDI,
		ProvideSource,
	),
	fx.Invoke(RegisterDatabaseLifecycle),
)

// DatabaseParams groups the dependencies for NewDatabaseWithDI
type DatabaseParams struct {
	fx.In

	Config Config
	Logger Logger
}

func NewDatabaseWithDI(params DatabaseParams) (*Database, error) {
	return New(context.Background(), params.Config, params.Logger)
}

// ProvideSource exposes *Database as a pipeline.ConnectionSource
func ProvideSource(d *Database) pipeline.ConnectionSource {
	return d
}

// DatabaseLifeCycleParams groups the dependencies for RegisterDatabaseLifecycle
type DatabaseLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Database  *Database
}

// RegisterDatabaseLifecycle closes the pool on stop. For the postgres type it
// also registers the gorm client's lifecycle, whose stop hook runs first.
func RegisterDatabaseLifecycle(params DatabaseLifeCycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return params.Database.Close()
		},
	})

	if pg := params.Database.Postgres(); pg != nil {
		postgres.RegisterPostgresLifecycle(postgres.PostgresLifeCycleParams{
			Lifecycle: params.Lifecycle,
			Postgres:  pg,
		})
	}
}
