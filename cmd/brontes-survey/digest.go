package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes/internal/output"
)

//nolint:gochecknoglobals // display order, effectively const
var classOrder = []string{"very_close", "close", "moderate", "distant"}

func digestCommand() *cli.Command {
	return &cli.Command{
		Name:      "digest",
		Usage:     "Produce a summary digest from a brontes survey report",
		ArgsUsage: "<report.jsonl>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "class",
				Usage: "List the events of a distance class: very_close, close, moderate, distant",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: path to report.jsonl", errArgCount)
			}

			return runDigest(cmd.Args().First(), cmd.String("class"))
		},
	}
}

func runDigest(reportPath, classFilter string) error {
	file, err := os.Open(reportPath) //nolint:gosec // CLI tool opens user-specified report files
	if err != nil {
		return fmt.Errorf("opening report: %w", err)
	}
	defer file.Close()

	records, err := output.ReadRecords(file)
	if err != nil {
		return err
	}

	printDigest(records)

	if classFilter != "" {
		printClassDetail(records, classFilter)
	}

	return nil
}

func printDigest(records []output.SurveyRecord) {
	total := len(records)
	failed := 0
	events := 0
	audioSeconds := 0.0
	withEvents := 0
	classes := map[string]int{}
	unranged := 0

	var (
		closest     float64
		closestFile string
		hasClosest  bool
	)

	for _, rec := range records {
		if rec.Error != "" || rec.Analysis == nil {
			failed++

			continue
		}

		audioSeconds += rec.Analysis.Summary.Duration
		events += len(rec.Analysis.Events)

		if len(rec.Analysis.Events) > 0 {
			withEvents++
		}

		for _, event := range rec.Analysis.Events {
			if event.Distance == nil {
				unranged++

				continue
			}

			classes[event.Distance.Class]++
		}

		if c := rec.Analysis.Summary.ClosestM; c != nil && (!hasClosest || *c < closest) {
			closest, closestFile, hasClosest = *c, displayName(rec.File), true
		}
	}

	fmt.Println("=== Brontes Survey Digest ===")
	fmt.Println()
	fmt.Printf("Recordings:       %d\n", total)
	fmt.Printf("Failed:           %d\n", failed)
	fmt.Printf("With thunder:     %d\n", withEvents)
	fmt.Printf("Audio surveyed:   %.1f min\n", audioSeconds/60) //nolint:mnd // minutes
	fmt.Printf("Thunder events:   %d\n", events)
	fmt.Println()

	fmt.Println("--- Distance Classes ---")

	for _, class := range classOrder {
		fmt.Printf("  %-11s %d\n", class+":", classes[class])
	}

	fmt.Printf("  %-11s %d\n", "no flash:", unranged)

	if hasClosest {
		fmt.Println()
		fmt.Printf("Closest strike:   %.0f m (%s)\n", closest, closestFile)
	}
}

type classEntry struct {
	file   string
	id     int
	start  float64
	meters float64
	peakDB float64
}

func printClassDetail(records []output.SurveyRecord, class string) {
	fmt.Println()

	var entries []classEntry

	for _, rec := range records {
		if rec.Analysis == nil {
			continue
		}

		for _, event := range rec.Analysis.Events {
			if event.Distance == nil || event.Distance.Class != class {
				continue
			}

			entries = append(entries, classEntry{
				file:   displayName(rec.File),
				id:     event.ID,
				start:  event.StartTime,
				meters: event.Distance.Meters,
				peakDB: event.PeakDB,
			})
		}
	}

	if len(entries) == 0 {
		fmt.Printf("No events in class %s\n", class)

		return
	}

	slices.SortFunc(entries, func(a, b classEntry) int {
		switch {
		case a.meters < b.meters:
			return -1
		case a.meters > b.meters:
			return 1
		}

		return 0
	})

	fmt.Printf("=== %s: %d events ===\n\n", class, len(entries))

	for _, entry := range entries {
		fmt.Printf("  %s #%d at %.2fs\n", entry.file, entry.id, entry.start)
		fmt.Printf("    distance: %.0f m  peak: %.1f dB\n", entry.meters, entry.peakDB)
	}
}

func displayName(file string) string {
	if file == "" {
		return "(redacted)"
	}

	return file
}
