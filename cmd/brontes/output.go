//nolint:wrapcheck
package main

import (
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/output"
)

func outputResult(label string, result *brontes.Result, formatName string, debug bool) error {
	formatter, err := format.GetFormatter(formatName)
	if err != nil {
		return err
	}

	var meta map[string]any
	if debug {
		meta = output.ResultToMap(result)
	} else {
		meta = buildFriendlyOutput(result)
	}

	data := &format.Data{
		Object: label,
		Meta:   meta,
	}

	return formatter.PrintAll([]*format.Data{data}, os.Stdout)
}

// buildFriendlyOutput creates a readable summary of a run.
func buildFriendlyOutput(result *brontes.Result) map[string]any {
	meta := map[string]any{
		"summary": summaryLine(result),
	}

	if len(result.Events) > 0 {
		events := make([]any, 0, len(result.Events))

		for _, event := range result.Events {
			line := fmt.Sprintf("#%d %.2fs to %.2fs (%.2fs), peak %.1f dB, flux %.2f",
				event.ID, event.StartTime, event.EndTime, event.Duration(), event.PeakEnergyDB, event.MeanFlux)

			if d, ok := result.Distance(event.ID); ok {
				line += fmt.Sprintf(", %s (%s)", meters(d.DistanceM), d.Class)
			}

			events = append(events, line)
		}

		meta["events"] = events
	}

	report := result.Report
	if skipped := report.FramesSkipped + report.FeatureFailures + report.DistanceSkipped; skipped > 0 {
		meta["skipped"] = fmt.Sprintf("%d frames, %d feature vectors, %d distances (see --debug)",
			report.FramesSkipped, report.FeatureFailures, report.DistanceSkipped)
	}

	return meta
}

func summaryLine(result *brontes.Result) string {
	line := fmt.Sprintf("%d thunder events in %.1fs of audio", len(result.Events), result.Duration)

	if len(result.Distances) == 0 {
		return line
	}

	closest := result.Distances[0]
	for _, d := range result.Distances[1:] {
		if d.DistanceM < closest.DistanceM {
			closest = d
		}
	}

	return line + fmt.Sprintf(" (closest: %s, event #%d)", meters(closest.DistanceM), closest.EventID)
}

func meters(m float64) string {
	if m < 1000 { //nolint:mnd // km
		return fmt.Sprintf("%.0f m", m)
	}

	return fmt.Sprintf("%.2f km", m/1000) //nolint:mnd // km
}
