package pipeline

import (
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// observe reports a finished invocation to the logger, the span and the observer
func (s *Stream[T]) observe() {
	var duration time.Duration
	if !s.begin.IsZero() {
		duration = time.Since(s.begin)
	}
	disposition := s.Disposition().String()

	if s.err != nil {
		s.opts.logger.Debug("pipeline invocation failed", s.err, s.logFields())
	} else {
		s.opts.logger.Debug("pipeline invocation finished", nil, s.logFields())
	}

	if s.span != nil {
		s.span.SetAttributes(
			attribute.Int64("db.pipeline.items", s.items),
			attribute.String("db.pipeline.disposition", disposition),
		)
		if s.err != nil {
			s.span.RecordError(s.err)
			s.span.SetStatus(codes.Error, s.err.Error())
		}
		s.span.End()
	}

	s.observeOperation(duration, disposition)
}

func (s *Stream[T]) observeOperation(duration time.Duration, disposition string) {
	if s.opts.observer == nil {
		return
	}

	var stage string
	if st, ok := StageOf(s.err); ok {
		stage = string(st)
	}

	s.opts.observer.ObserveOperation(observability.OperationContext{
		Component:   "pipeline",
		Operation:   s.mode(),
		Resource:    s.opts.operation,
		SubResource: disposition,
		Duration:    duration,
		Error:       s.err,
		Size:        s.items,
		Metadata: map[string]interface{}{
			"stage": stage,
		},
	})
}

func (s *Stream[T]) logFields() map[string]interface{} {
	fields := map[string]interface{}{
		"mode":        s.mode(),
		"items":       s.items,
		"disposition": s.Disposition().String(),
	}
	if s.opts.operation != "" {
		fields["operation"] = s.opts.operation
	}
	if !s.begin.IsZero() {
		fields["duration_ms"] = time.Since(s.begin).Milliseconds()
	}
	return fields
}
