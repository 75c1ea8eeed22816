package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aleph-Alpha/sqlpipe/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{Namespace: "goals", ServiceName: "test"})

	m.ObserveOperation(observability.OperationContext{
		Component:   "pipeline",
		Operation:   "execute_in_transaction",
		Resource:    "save",
		SubResource: "committed",
		Duration:    20 * time.Millisecond,
		Size:        3,
		Metadata:    map[string]interface{}{"stage": ""},
	})
	m.ObserveOperation(observability.OperationContext{
		Component:   "pipeline",
		Operation:   "execute_in_transaction",
		Resource:    "save",
		SubResource: "rolled_back",
		Error:       errors.New("duplicate"),
		Metadata:    map[string]interface{}{"stage": "statement"},
	})
	m.ObserveOperation(observability.OperationContext{
		Component:   "pipeline",
		Operation:   "execute_statement",
		SubResource: "not_started",
		Error:       errors.New("refused"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.invocations.WithLabelValues("pipeline", "execute_in_transaction", "save", "success", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.invocations.WithLabelValues("pipeline", "execute_in_transaction", "save", "error", "rolled_back")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.invocations.WithLabelValues("pipeline", "execute_statement", "unnamed", "error", "not_started")))
	assert.Equal(t, 3.0, testutil.ToFloat64(
		m.items.WithLabelValues("pipeline", "execute_in_transaction", "save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.failures.WithLabelValues("pipeline", "execute_in_transaction", "statement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.failures.WithLabelValues("pipeline", "execute_statement", "unknown")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestRegistryCarriesServiceLabel(t *testing.T) {
	m := NewMetrics(Config{Namespace: "goals", ServiceName: "svc"})
	m.ObserveOperation(observability.OperationContext{Component: "pipeline", Operation: "execute_statement", SubResource: "not_started"})

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "goals_pipeline_invocations_total" {
			continue
		}
		found = true
		for _, l := range f.GetMetric()[0].GetLabel() {
			if l.GetName() == "service" {
				assert.Equal(t, "svc", l.GetValue())
			}
		}
	}
	assert.True(t, found)
}

func TestDefaultCollectors(t *testing.T) {
	m := NewMetrics(Config{EnableDefaultCollectors: true, ServiceName: "goals"})
	families, err := m.Registry.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
	assert.Equal(t, DefaultMetricsAddress, m.Server.Addr)
}

func TestHandlerExposesPipelineMetrics(t *testing.T) {
	m := NewMetrics(Config{Namespace: "goals", ServiceName: "goals"})
	m.ObserveOperation(observability.OperationContext{Component: "pipeline", Operation: "execute_statement", Resource: "find_all", SubResource: "not_started", Size: 2})

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `goals_pipeline_items_total{component="pipeline",mode="execute_statement",operation="find_all"`))
}

func TestFXModule(t *testing.T) {
	var obs observability.Observer
	var m *Metrics

	app := fxtest.New(t,
		fx.Provide(
			func() Config { return Config{Address: "127.0.0.1:0", ServiceName: "goals"} },
			func() Logger { return nopLogger{} },
		),
		FXModule,
		fx.Populate(&obs, &m),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, obs)
	assert.Same(t, m, obs)

	obs.ObserveOperation(observability.OperationContext{Component: "pipeline", Operation: "execute_statement", SubResource: "not_started"})
	assert.Equal(t, 1, testutil.CollectAndCount(m.invocations))
}
