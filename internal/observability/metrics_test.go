package observability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/observability"
)

func TestObserveAndWrite(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	metrics.Observe(&brontes.Result{
		Duration: 60,
		Events: []brontes.Event{
			{ID: 1, StartTime: 1, EndTime: 1.3},
			{ID: 2, StartTime: 10, EndTime: 12},
		},
		Distances: []brontes.DistanceEstimate{{EventID: 1, DistanceM: 1030.5, Class: "close"}},
		Report: brontes.Report{
			Candidates:   4,
			DroppedShort: 1,
			Timings:      []brontes.StageTiming{{Stage: "detect", Seconds: 0.02}},
		},
	})
	metrics.Observe(nil)

	path := filepath.Join(t.TempDir(), "brontes.prom")
	require.NoError(t, observability.WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	for _, line := range []string{
		"brontes_runs_total 2",
		"brontes_run_failures_total 1",
		"brontes_audio_seconds_total 60",
		"brontes_events_total 2",
		"brontes_candidates_total 4",
		"brontes_dropped_short_total 1",
		"brontes_event_duration_seconds_count 2",
		`brontes_distance_meters_count{class="close"} 1`,
		`brontes_stage_duration_seconds_count{stage="detect"} 1`,
	} {
		assert.Contains(t, text, line)
	}
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics(prometheus.NewRegistry())
		observability.NewMetrics(prometheus.NewRegistry())
	})
}
