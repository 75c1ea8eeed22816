package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry, the HTTP server exposing it and the
// collectors fed by pipeline observations.
type Metrics struct {
	Server      *http.Server
	Registry    *prometheus.Registry
	serviceName string

	invocations    *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	items          *prometheus.CounterVec
	failures       *prometheus.CounterVec
	lastInvocation *prometheus.GaugeVec
}

// NewMetrics creates the registry, registers the pipeline collectors and prepares
// (but does not start) the HTTP server.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	m := &Metrics{
		Registry:    registry,
		serviceName: cfg.ServiceName,
		invocations: createCounterVec(cfg.Namespace, "pipeline_invocations_total",
			"Finished pipeline invocations by outcome and transaction disposition.",
			[]string{"component", "mode", "operation", "outcome", "disposition"}),
		duration: createHistogramVec(cfg.Namespace, "pipeline_duration_seconds",
			"Time from connection open to connection close.",
			[]string{"component", "mode", "operation"}, prometheus.DefBuckets),
		items: createCounterVec(cfg.Namespace, "pipeline_items_total",
			"Items delivered to callers.",
			[]string{"component", "mode", "operation"}),
		failures: createCounterVec(cfg.Namespace, "pipeline_failures_total",
			"Failed invocations by the stage that failed.",
			[]string{"component", "mode", "stage"}),
		lastInvocation: createGaugeVec(cfg.Namespace, "pipeline_last_invocation_timestamp_seconds",
			"Unix time of the last finished invocation.",
			[]string{"component", "mode", "outcome"}),
	}
	wrappedRegistry.MustRegister(m.invocations, m.duration, m.items, m.failures, m.lastInvocation)

	address := cfg.Address
	if address == "" {
		address = DefaultMetricsAddress
	}
	m.Server = &http.Server{
		Addr:    address,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	return m
}
