package output_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/farcloser/primordium/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/output"
)

func result() *brontes.Result {
	names := []string{"duration", "rms"}

	return &brontes.Result{
		SampleRate:   48000,
		Duration:     10,
		FeatureNames: names,
		Events: []brontes.Event{
			{ID: 1, StartTime: 0.49, EndTime: 0.75, PeakEnergyDB: -10.000000000000002, MeanFlux: 0.1},
			{ID: 2, StartTime: 3, EndTime: 4.5, PeakEnergyDB: -20, MeanFlux: 0.05},
		},
		Features: []brontes.FeatureVector{
			{EventID: 2, Names: names, Values: map[string]float64{"duration": 1.5, "rms": 1.0 / 3}},
		},
		Distances: []brontes.DistanceEstimate{
			{EventID: 1, DeltaT: 3, ReferenceTempC: 20, SpeedOfSound: 343.5, DistanceM: 1030.5, LowerM: 963.9, UpperM: 1102.2, Class: "close"},
		},
		Report: brontes.Report{
			Frames:          999,
			Candidates:      3,
			Merged:          2,
			FeatureFailures: 1,
			Anomalies: []brontes.Anomaly{
				{Stage: "features", Frame: -1, EventID: 1, Reason: "rms is NaN"},
			},
			Timings: []brontes.StageTiming{{Stage: "detect", Seconds: 0.25}},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestWriteEvents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.WriteEvents(&buf, result().Events))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"event_id", "start_time_s", "end_time_s", "peak_energy_db", "mean_spectral_flux"}, rows[0])
	assert.Equal(t, []string{"1", "0.49", "0.75", "-10.000000000000002", "0.1"}, rows[1])
}

func TestWriteFeatures(t *testing.T) {
	r := result()

	var buf bytes.Buffer
	require.NoError(t, output.WriteFeatures(&buf, r.FeatureNames, r.Features))

	rows := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		{"event_id", "duration", "rms"},
		{"2", "1.5", "0.3333333333333333"},
	}, rows)

	r.Features[0].Values = map[string]float64{"duration": 1}
	require.Error(t, output.WriteFeatures(&buf, r.FeatureNames, r.Features))
}

func TestWriteDistances(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.WriteDistances(&buf, result().Distances))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 8)
	assert.Equal(t, []string{"1", "3", "20", "343.5", "1030.5", "963.9", "1102.2", "close"}, rows[1])
}

func TestWriteTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := output.WriteTables(dir, result(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, output.EventsFile), filepath.Join(dir, output.FeaturesFile)}, paths)
	assert.NoFileExists(t, filepath.Join(dir, output.DistancesFile))
	assert.NoFileExists(t, filepath.Join(dir, output.MetaFile))

	first, err := os.ReadFile(paths[0])
	require.NoError(t, err)

	meta, err := output.NewMeta("storm.wav", brontes.DefaultConfig(), result())
	require.NoError(t, err)

	paths, err = output.WriteTables(dir, result(), meta, true)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, filepath.Join(dir, output.MetaFile), paths[3])

	second, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, first, second, "reruns are byte identical")

	firstMeta, err := os.ReadFile(paths[3])
	require.NoError(t, err)

	_, err = output.WriteTables(dir, result(), meta, true)
	require.NoError(t, err)

	secondMeta, err := os.ReadFile(paths[3])
	require.NoError(t, err)
	assert.Equal(t, firstMeta, secondMeta, "meta.json is byte identical on rerun")
}

func TestMeta(t *testing.T) {
	dir := t.TempDir()

	meta, err := output.NewMeta("storm.wav", brontes.DefaultConfig(), result())
	require.NoError(t, err)
	assert.Equal(t, "storm.wav", meta.Source)
	assert.Equal(t, 2, meta.EventCount)
	assert.InDelta(t, 10.0, meta.DurationS, 1e-12)
	assert.Len(t, meta.ConfigHash, 64)
	assert.NotEmpty(t, meta.Version)
	assert.Contains(t, meta.Config, "detect")

	_, err = output.WriteTables(dir, result(), meta, false)
	require.NoError(t, err)

	loaded, err := output.ReadMeta(filepath.Join(dir, output.MetaFile))
	require.NoError(t, err)
	assert.Equal(t, meta.ConfigHash, loaded.ConfigHash)
	assert.True(t, meta.SameConfig(loaded))

	cfg := brontes.DefaultConfig()
	cfg.Detect.MergeGapMs = 500

	other, err := output.NewMeta("storm.wav", cfg, result())
	require.NoError(t, err)
	assert.False(t, meta.SameConfig(other))
	assert.False(t, meta.SameConfig(&output.Meta{}), "a missing hash never matches")
	assert.False(t, (&output.Meta{}).SameConfig(&output.Meta{}))
}

func TestReadMetaErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := output.ReadMeta(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, fault.ErrReadFailure)

	bad := filepath.Join(dir, output.MetaFile)
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	_, err = output.ReadMeta(bad)
	require.ErrorIs(t, err, fault.ErrInvalidJSON)
}

func TestResultToMap(t *testing.T) {
	m := output.ResultToMap(result())

	summary, ok := m["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, summary["event_count"])
	assert.InDelta(t, 1030.5, summary["closest_m"], 1e-9)

	events, ok := m["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 2)

	first, ok := events[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, first, "distance")
	assert.Equal(t, false, first["features"])

	second, ok := events[1].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, second, "distance")
	assert.NotContains(t, second, "features")

	report, ok := m["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, report["feature_failures"])

	anomalies, ok := report["anomalies"].([]any)
	require.True(t, ok)
	require.Len(t, anomalies, 1)
	assert.Equal(t, map[string]any{"stage": "features", "reason": "rms is NaN", "event_id": 1}, anomalies[0])
}

func TestResultToMapEmpty(t *testing.T) {
	m := output.ResultToMap(&brontes.Result{})

	summary, ok := m["summary"].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, summary["closest_m"])
}
