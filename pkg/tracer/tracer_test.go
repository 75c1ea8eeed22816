package tracer

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/Aleph-Alpha/sqlpipe/pkg/sqldriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	recorder := tracetest.NewSpanRecorder()
	tr := NewClient(Config{ServiceName: "goals", AppEnv: "test"}, log, trace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = tr.Shutdown(context.Background())
	})
	return tr, recorder
}

func attrs(span trace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartSpanAndAttributes(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	_, span := tr.StartSpan(context.Background(), "goal.import")
	tr.SetAttributes(span, map[string]interface{}{
		"goal.count": 3,
		"goal.batch": int64(7),
		"ratio":      0.5,
		"dry_run":    true,
		"name":       "weekly",
		"other":      []int{1},
	})
	tr.RecordErrorOnSpan(span, errors.New("boom"))
	tr.RecordErrorOnSpan(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := attrs(ended[0])
	assert.Equal(t, int64(3), got["goal.count"].AsInt64())
	assert.Equal(t, int64(7), got["goal.batch"].AsInt64())
	assert.Equal(t, 0.5, got["ratio"].AsFloat64())
	assert.True(t, got["dry_run"].AsBool())
	assert.Equal(t, "weekly", got["name"].AsString())
	assert.Equal(t, "[1]", got["other"].AsString())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
}

func TestCarrierRoundTrip(t *testing.T) {
	tr, _ := newRecordingTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "outgoing")
	defer span.End()

	carrier := tr.GetCarrier(ctx)
	require.Contains(t, carrier, "traceparent")

	remote := tr.SetCarrierOnContext(context.Background(), carrier)
	_, child := tr.StartSpan(remote, "incoming")
	defer child.End()
	assert.Equal(t, span.SpanContext().TraceID(), child.SpanContext().TraceID())
}

func TestPipelineInvocationsBecomeSpans(t *testing.T) {
	tr, recorder := newRecordingTracer(t)

	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`create table goal (id integer primary key autoincrement, name text not null unique)`)
	require.NoError(t, err)
	src := sqldriver.NewSource(db)

	ctx, parent := tr.StartSpan(context.Background(), "goal.import")
	_, err = pipeline.Collect(pipeline.ExecuteInTransaction(ctx, src,
		pipeline.Exec(pipeline.NewStatement("insert into goal (name) values ($1)", "first")),
		pipeline.WithOperation("insert_goal")))
	require.NoError(t, err)
	parent.End()

	var invocation trace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "pipeline.execute_in_transaction" {
			invocation = s
		}
	}
	require.NotNil(t, invocation)
	assert.Equal(t, parent.SpanContext().SpanID(), invocation.Parent().SpanID())

	got := attrs(invocation)
	assert.Equal(t, "insert_goal", got["db.operation"].AsString())
	assert.Equal(t, "committed", got["db.pipeline.disposition"].AsString())
	assert.Equal(t, int64(1), got["db.pipeline.items"].AsInt64())
}

func TestFXModule(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	var tr *Tracer
	app := fxtest.New(t,
		fx.Provide(
			func() Config { return Config{ServiceName: "goals", SampleRatio: 0.5} },
			func() Logger { return log },
		),
		FXModule,
		fx.Populate(&tr),
	)
	app.RequireStart()
	require.NotNil(t, tr)
	app.RequireStop()

	assert.NoError(t, tr.Shutdown(context.Background()))
}
