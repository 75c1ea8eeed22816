package pipeline

import (
	"github.com/Aleph-Alpha/sqlpipe/pkg/observability"
	"go.uber.org/fx"
)

// FXModule provides *Operations built from the ConnectionSource in the container.
// Config, Logger and an observability.Observer are picked up when present.
var FXModule = fx.Module("pipeline",
	fx.Provide(
		NewOperationsWithDI,
	),
)

// OperationsParams groups the dependencies for NewOperationsWithDI
type OperationsParams struct {
	fx.In

	Source   ConnectionSource
	Config   Config                 `optional:"true"`
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewOperationsWithDI creates Operations from injected dependencies
func NewOperationsWithDI(params OperationsParams) *Operations {
	opts := []Option{WithConfig(params.Config)}
	if params.Logger != nil {
		opts = append(opts, WithLogger(params.Logger))
	}
	if params.Observer != nil {
		opts = append(opts, WithObserver(params.Observer))
	}
	return NewOperations(params.Source, opts...)
}
