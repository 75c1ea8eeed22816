package logger

const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config defines the configuration for the logger
type Config struct {
	// 1. production -> INFO
	// 2. development -> DEBUG
	// else -> INFO
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL" koanf:"level" validate:"omitempty,oneof=debug info warning error"`

	// ServiceName is attached to every entry as the "service" field
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME" koanf:"service_name"`

	// EnableTracing adds trace_id and span_id from the context to entries
	// written through the *WithContext methods
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING" koanf:"enable_tracing"`
}
