package goal

import (
	"context"

	"github.com/Aleph-Alpha/sqlpipe/pkg/database"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"go.uber.org/fx"
)

// FXModule provides the goal Repository and creates the goal table on start
var FXModule = fx.Module("goal",
	fx.Provide(
		NewRepositoryWithDI,
	),
	fx.Invoke(RegisterRepositoryLifecycle),
)

// RepositoryParams groups the dependencies for NewRepositoryWithDI. The
// dialect follows the database type when a database.Config is available.
type RepositoryParams struct {
	fx.In

	Operations *pipeline.Operations
	Logger     Logger
	Database   database.Config `optional:"true"`
}

func NewRepositoryWithDI(params RepositoryParams) *Repository {
	dialect := DialectPostgres
	if params.Database.Type == database.TypeSQLite {
		dialect = DialectSQLite
	}
	return NewRepository(params.Operations, params.Logger, WithDialect(dialect))
}

func RegisterRepositoryLifecycle(lc fx.Lifecycle, repo *Repository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Migrate(ctx)
		},
	})
}
