package tracer

import (
	"context"

	"go.uber.org/fx"
)

var FXModule = fx.Module("tracer",
	fx.Provide(
		NewClientWithDI,
	),
	fx.Invoke(RegisterTracerLifecycle),
)

// TracerParams groups the dependencies for NewClientWithDI
type TracerParams struct {
	fx.In

	Config Config
	Logger Logger
}

func NewClientWithDI(params TracerParams) *Tracer {
	return NewClient(params.Config, params.Logger)
}

func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if tracer == nil || tracer.tracer == nil {
				return nil
			}
			tracer.logger.Info("shutting down tracer...", nil, nil)
			return tracer.Shutdown(ctx)
		},
	})
}
