package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Aleph-Alpha/sqlpipe/pkg/goal"
	"github.com/Aleph-Alpha/sqlpipe/pkg/metrics"
	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestApplicationWiring(t *testing.T) {
	t.Setenv("SQLPIPE_LOGGER__LEVEL", "error")
	t.Setenv("SQLPIPE_LOGGER__SERVICE_NAME", "goals")
	t.Setenv("SQLPIPE_METRICS__ADDRESS", "127.0.0.1:0")
	t.Setenv("SQLPIPE_METRICS__NAMESPACE", "goals")
	t.Setenv("SQLPIPE_DATABASE__TYPE", "sqlite")
	t.Setenv("SQLPIPE_DATABASE__SQLITE__PATH", filepath.Join(t.TempDir(), "goals.db"))

	var repo *goal.Repository
	var m *metrics.Metrics
	app := fxtest.New(t, FXModule, fx.Populate(&repo, &m))
	app.RequireStart()
	defer app.RequireStop()

	ctx := context.Background()
	_, err := repo.InsertMany(ctx, []string{"first", "second"})
	require.NoError(t, err)

	all, err := pipeline.Collect(repo.FindAll(ctx))
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, goal.ErrNotFound)

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	invocations := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "goals_pipeline_invocations_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "operation" {
					invocations[l.GetValue()] += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, invocations["goal.migrate"])
	assert.Equal(t, 1.0, invocations["goal.insert_many"])
	assert.Equal(t, 1.0, invocations["goal.find_all"])
	assert.Equal(t, 1.0, invocations["goal.find_by_id"])
}
