package pipeline

import (
	"github.com/Aleph-Alpha/sqlpipe/pkg/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Logger defines the interface for logging within the pipeline package.
// It is satisfied by *logger.Logger.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=pipeline
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

const instrumentationName = "github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"

type options struct {
	cfg       Config
	logger    Logger
	observer  observability.Observer
	tracer    trace.Tracer
	operation string
}

// Option configures a single pipeline invocation or an Operations value
type Option func(*options)

// WithConfig sets the pipeline configuration. Zero fields fall back to defaults.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithLogger routes pipeline diagnostics to l
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver reports every finished invocation to obs
func WithObserver(obs observability.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithTracer overrides the tracer taken from the global OpenTelemetry provider
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithOperation names the invocation in logs, spans and observations
func WithOperation(name string) Option {
	return func(o *options) {
		o.operation = name
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: nopLogger{}}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg = o.cfg.withDefaults()
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}
	return o
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}
func (nopLogger) Fatal(string, error, ...map[string]interface{}) {}
