package metrics

// Default port for metrics server if none is specified.
const DefaultMetricsAddress = ":9090"

// Config defines the configuration structure for the Prometheus metrics server.
type Config struct {
	// Address determines the network address where the Prometheus
	// metrics HTTP server listens, e.g. ":9090" or "127.0.0.1:9100".
	//
	// Default: ":9090"
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS" koanf:"address"`

	// EnableDefaultCollectors controls whether the built-in Go runtime
	// and process metrics are automatically registered.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS" koanf:"enable_default_collectors"`

	// Namespace sets a global prefix for all metrics registered by this service.
	//
	// Example:
	//   Namespace: "goals"
	//   → Metric name becomes "goals_pipeline_invocations_total"
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE" koanf:"namespace"`

	// ServiceName is added as the "service" label to every metric
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME" koanf:"service_name"`
}
