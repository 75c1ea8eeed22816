package tracer

// Config controls the tracer provider
type Config struct {
	// ServiceName is recorded as the service.name resource attribute
	ServiceName string `yaml:"service_name" envconfig:"TRACER_SERVICE_NAME" koanf:"service_name"`

	// AppEnv is recorded as deployment.environment, e.g. "production"
	AppEnv string `yaml:"app_env" envconfig:"TRACER_APP_ENV" koanf:"app_env"`

	// EnableExport sends spans to an OTLP/HTTP collector. The endpoint is read
	// from Endpoint, or from the standard OTEL_EXPORTER_OTLP_* variables when empty.
	EnableExport bool `yaml:"enable_export" envconfig:"TRACER_ENABLE_EXPORT" koanf:"enable_export"`

	Endpoint string `yaml:"endpoint" envconfig:"TRACER_ENDPOINT" koanf:"endpoint"`
	Insecure bool   `yaml:"insecure" envconfig:"TRACER_INSECURE" koanf:"insecure"`

	// SampleRatio is the fraction of root traces kept, between 0 and 1.
	// Zero samples everything.
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"TRACER_SAMPLE_RATIO" koanf:"sample_ratio" validate:"gte=0,lte=1"`
}
