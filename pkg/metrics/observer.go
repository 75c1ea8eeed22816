package metrics

import (
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/observability"
)

var _ observability.Observer = (*Metrics)(nil)

// ObserveOperation records a finished pipeline invocation
func (m *Metrics) ObserveOperation(ctx observability.OperationContext) {
	outcome := "success"
	if ctx.Error != nil {
		outcome = "error"
	}
	operation := ctx.Resource
	if operation == "" {
		operation = "unnamed"
	}

	m.invocations.WithLabelValues(ctx.Component, ctx.Operation, operation, outcome, ctx.SubResource).Inc()
	m.duration.WithLabelValues(ctx.Component, ctx.Operation, operation).Observe(ctx.Duration.Seconds())
	if ctx.Size > 0 {
		m.items.WithLabelValues(ctx.Component, ctx.Operation, operation).Add(float64(ctx.Size))
	}
	if ctx.Error != nil {
		stage, _ := ctx.Metadata["stage"].(string)
		if stage == "" {
			stage = "unknown"
		}
		m.failures.WithLabelValues(ctx.Component, ctx.Operation, stage).Inc()
	}
	m.lastInvocation.WithLabelValues(ctx.Component, ctx.Operation, outcome).Set(float64(time.Now().Unix()))
}
