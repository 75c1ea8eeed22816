package postgres

import (
	"context"
	"sync"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"go.uber.org/fx"
)

// FXModule is an fx module that provides the Postgres client. It also exposes
// the client as a pipeline.ConnectionSource and registers lifecycle hooks that
// run the health monitor and close the pool on shutdown.
var FXModule = fx.Module("postgres",
	fx.Provide(
		NewPostgresClientWithDI,
		ProvideSource,
	),
	fx.Invoke(RegisterPostgresLifecycle),
)

// ProvideSource exposes the concrete *Postgres as a pipeline.ConnectionSource
func ProvideSource(pg *Postgres) pipeline.ConnectionSource {
	return pg
}

// PostgresParams groups the dependencies needed to create a Postgres client via dependency injection
type PostgresParams struct {
	fx.In

	Config Config
	Logger Logger
}

// NewPostgresClientWithDI creates a new Postgres client using dependency injection.
//
// Example usage with fx:
//
//	app := fx.New(
//	    logger.FXModule,
//	    postgres.FXModule,
//	    fx.Provide(
//	        func() postgres.Config {
//	            return loadPostgresConfig()
//	        },
//	    ),
//	)
func NewPostgresClientWithDI(params PostgresParams) (*Postgres, error) {
	return NewPostgres(params.Config, params.Logger)
}

// PostgresLifeCycleParams groups the dependencies needed for Postgres lifecycle management
type PostgresLifeCycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Postgres  *Postgres
}

// RegisterPostgresLifecycle registers lifecycle hooks for the Postgres client.
// It sets up:
// 1. Connection monitoring on application start
// 2. Automatic reconnection on application start
// 3. Graceful shutdown of the pool on application stop
//
// The goroutines run on a context detached from the start hook, which fx
// cancels as soon as OnStart returns.
func RegisterPostgresLifecycle(params PostgresLifeCycleParams) {
	wg := &sync.WaitGroup{}
	runCtx, cancel := context.WithCancel(context.Background())

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				params.Postgres.MonitorConnection(runCtx)
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				params.Postgres.RetryConnection(runCtx)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			params.Postgres.closeShutdownOnce.Do(func() {
				close(params.Postgres.shutdownSignal)
			})

			wg.Wait()

			return params.Postgres.GracefulShutdown()
		},
	})
}
