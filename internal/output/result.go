// Package output serializes pipeline results: the CSV tables and the summary maps handed to the
// primordium formatters.
package output

import (
	"github.com/farcloser/brontes"
)

// ResultToMap converts a run result into the canonical map structure used for console, JSON and
// JSONL output. Feature vectors are left out; they go to the features table.
func ResultToMap(result *brontes.Result) map[string]any {
	events := make([]any, 0, len(result.Events))

	for _, event := range result.Events {
		entry := EventToMap(event)

		if d, ok := result.Distance(event.ID); ok {
			entry["distance"] = DistanceToMap(d)
		}

		if _, ok := result.FeatureVector(event.ID); !ok {
			entry["features"] = false
		}

		events = append(events, entry)
	}

	return map[string]any{
		"summary": map[string]any{
			"duration_s":  result.Duration,
			"sample_rate": result.SampleRate,
			"event_count": len(result.Events),
			"distances":   len(result.Distances),
			"closest_m":   closest(result.Distances),
		},
		"events": events,
		"report": ReportToMap(&result.Report),
	}
}

// EventToMap converts one event.
func EventToMap(event brontes.Event) map[string]any {
	return map[string]any{
		"id":                 event.ID,
		"start_time_s":       event.StartTime,
		"end_time_s":         event.EndTime,
		"duration_s":         event.Duration(),
		"peak_energy_db":     event.PeakEnergyDB,
		"mean_spectral_flux": event.MeanFlux,
	}
}

// DistanceToMap converts one distance estimate.
func DistanceToMap(d brontes.DistanceEstimate) map[string]any {
	return map[string]any{
		"delta_t_s":          d.DeltaT,
		"speed_of_sound_m_s": d.SpeedOfSound,
		"distance_m":         d.DistanceM,
		"distance_lower_m":   d.LowerM,
		"distance_upper_m":   d.UpperM,
		"class":              string(d.Class),
	}
}

// ReportToMap converts the run report.
func ReportToMap(report *brontes.Report) map[string]any {
	anomalies := make([]any, 0, len(report.Anomalies))
	for _, anomaly := range report.Anomalies {
		entry := map[string]any{
			"stage":  string(anomaly.Stage),
			"reason": anomaly.Reason,
		}
		if anomaly.Frame >= 0 {
			entry["frame"] = anomaly.Frame
		}

		if anomaly.EventID > 0 {
			entry["event_id"] = anomaly.EventID
		}

		anomalies = append(anomalies, entry)
	}

	timings := make(map[string]any, len(report.Timings))
	for _, timing := range report.Timings {
		timings[string(timing.Stage)] = timing.Seconds
	}

	return map[string]any{
		"frames":           report.Frames,
		"frames_skipped":   report.FramesSkipped,
		"candidates":       report.Candidates,
		"merged":           report.Merged,
		"dropped_short":    report.DroppedShort,
		"feature_failures": report.FeatureFailures,
		"distance_skipped": report.DistanceSkipped,
		"anomalies":        anomalies,
		"timings_s":        timings,
	}
}

func closest(distances []brontes.DistanceEstimate) any {
	if len(distances) == 0 {
		return nil
	}

	best := distances[0].DistanceM
	for _, d := range distances[1:] {
		best = min(best, d.DistanceM)
	}

	return best
}
