// Package app assembles every sqlpipe component into one fx module: config from
// the environment, the zap logger, Prometheus metrics, the tracer, the
// configured database, pipeline Operations and the goal Repository.
//
//	fx.New(app.FXModule, fx.Invoke(func(repo *goal.Repository) { ... })).Run()
package app

import (
	"github.com/Aleph-Alpha/sqlpipe/pkg/config"
	"github.com/Aleph-Alpha/sqlpipe/pkg/database"
	"github.com/Aleph-Alpha/sqlpipe/pkg/goal"
	"github.com/Aleph-Alpha/sqlpipe/pkg/logger"
	"github.com/Aleph-Alpha/sqlpipe/pkg/metrics"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/tracer"
	"go.uber.org/fx"
)

var FXModule = fx.Module("sqlpipe",
	config.FXModule,
	logger.FXModule,
	metrics.FXModule,
	tracer.FXModule,
	database.FXModule,
	pipeline.FXModule,
	goal.FXModule,
	fx.Provide(
		func(l *logger.Logger) metrics.Logger { return l },
		func(l *logger.Logger) tracer.Logger { return l },
		func(l *logger.Logger) database.Logger { return l },
		func(l *logger.Logger) pipeline.Logger { return l },
		func(l *logger.Logger) goal.Logger { return l },
	),
	// the tracer must install its provider before any invocation runs
	fx.Invoke(func(*tracer.Tracer) {}),
)
