//nolint:wrapcheck
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/config"
	"github.com/farcloser/brontes/internal/output"
	"github.com/farcloser/brontes/internal/source"
)

const (
	defaultOutput = "brontes-survey.jsonl"
	// A recording may come with a sidecar listing flash timestamps, one per line.
	flashSuffix = ".flashes"
)

var (
	errNotDirectory = errors.New("not a directory")
	errNoRecordings = errors.New("no recordings found")
	errArgCount     = errors.New("expected exactly one argument")
)

//nolint:gochecknoglobals // configuration data, effectively const
var recordingExtensions = []string{".wav", ".flac", ".m4a", ".mp3", ".ogg", ".opus", ".mp4", ".mkv", ".mov"}

func surveyCommand() *cli.Command {
	return &cli.Command{
		Name:      "survey",
		Usage:     "Run detection over every recording of a folder and write a JSONL report",
		ArgsUsage: "<folder>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file (defaults apply when omitted)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Report path; a gzip copy is written next to it",
				Value:   defaultOutput,
			},
			&cli.BoolFlag{
				Name:  "redact-path",
				Usage: "Strip file paths from the report",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Number of recordings processed concurrently",
				Value:   runtime.NumCPU(),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: folder path", errArgCount)
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			// Recordings are the unit of parallelism here.
			cfg.Features.Workers = 1

			pipeline, err := brontes.New(cfg)
			if err != nil {
				return err
			}

			return runSurvey(ctx, surveyOptions{
				folder:   cmd.Args().First(),
				output:   cmd.String("output"),
				redact:   cmd.Bool("redact-path"),
				workers:  max(cmd.Int("workers"), 1),
				pipeline: pipeline,
			})
		},
	}
}

type surveyOptions struct {
	folder   string
	output   string
	redact   bool
	workers  int
	pipeline *brontes.Pipeline
}

func runSurvey(ctx context.Context, opts surveyOptions) error {
	info, err := os.Stat(opts.folder)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q: %w", opts.folder, errNotDirectory)
	}

	files, err := collectRecordings(opts.folder)
	if err != nil {
		return fmt.Errorf("scanning folder: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("%q: %w", opts.folder, errNoRecordings)
	}

	fmt.Fprintf(os.Stderr, "Found %d recordings to survey (%d workers)\n", len(files), opts.workers)

	startTime := time.Now()
	records := make([]output.Record, len(files))

	var progress atomic.Int64

	sem := make(chan struct{}, opts.workers)

	var waitGroup sync.WaitGroup

	for idx, filePath := range files {
		waitGroup.Add(1)

		go func(idx int, filePath string) {
			defer waitGroup.Done()

			sem <- struct{}{}

			defer func() { <-sem }()

			records[idx] = processFile(ctx, opts.pipeline, filePath)

			done := progress.Add(1)
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", done, len(files), filePath)
		}(idx, filePath)
	}

	waitGroup.Wait()

	failed := 0

	var totalLoad, totalRun time.Duration

	for idx := range records {
		record := &records[idx]

		if record.Error != "" {
			failed++
		}

		if record.Timing != nil {
			totalLoad += millisToDuration(record.Timing.LoadMs)
			totalRun += millisToDuration(record.Timing.RunMs)
		}

		if opts.redact {
			record.File = ""
		}
	}

	if err = writeReport(opts.output, records); err != nil {
		return err
	}

	if err = output.Compress(opts.output); err != nil {
		slog.Error("compressing report", "error", err)
	}

	elapsed := time.Since(startTime)

	fmt.Fprintf(os.Stderr, "\nDone: %d recordings in %s (%d failed)\n", len(files), elapsed.Truncate(time.Second), failed)
	fmt.Fprintf(os.Stderr, "Report written to %s (and %s.gz)\n", opts.output, opts.output)

	fmt.Fprintf(os.Stderr, "\n--- Timing ---\n")
	fmt.Fprintf(os.Stderr, "  Wall clock:  %s\n", elapsed.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  loading:     %s (cumulative)\n", totalLoad.Truncate(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  pipeline:    %s (cumulative)\n", totalRun.Truncate(time.Millisecond))

	if processed := len(files) - failed; processed > 0 {
		fmt.Fprintf(os.Stderr, "  avg/file:    %s (load: %s, pipeline: %s)\n",
			(totalLoad+totalRun)/time.Duration(processed),
			totalLoad/time.Duration(processed),
			totalRun/time.Duration(processed),
		)
	}

	fmt.Fprintln(os.Stderr)

	return runDigest(opts.output, "")
}

func writeReport(path string, records []output.Record) error {
	out, err := os.Create(path) //nolint:gosec // user chosen report path
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}

	writer := bufio.NewWriter(out)

	if err = output.WriteRecords(writer, records); err != nil {
		out.Close()

		return err
	}

	if err = writer.Flush(); err != nil {
		out.Close()

		return err
	}

	return out.Close()
}

func processFile(ctx context.Context, pipeline *brontes.Pipeline, filePath string) output.Record {
	fileStart := time.Now()
	timing := &output.RecordTiming{}

	input, err := readFlashes(filePath + flashSuffix)
	if err != nil {
		return output.Record{File: filePath, Error: fmt.Sprintf("flashes: %v", err)}
	}

	loadStart := time.Now()

	buffer, err := source.Load(ctx, filePath, pipeline.Config().Audio.SampleRate)

	timing.LoadMs = durationMs(time.Since(loadStart))

	if err != nil {
		return output.Record{File: filePath, Error: fmt.Sprintf("load failed: %v", err), Timing: timing}
	}

	runStart := time.Now()

	result, err := pipeline.Run(ctx, buffer, input)

	timing.RunMs = durationMs(time.Since(runStart))
	timing.TotalMs = durationMs(time.Since(fileStart))

	if err != nil {
		return output.Record{File: filePath, Error: fmt.Sprintf("pipeline failed: %v", err), Timing: timing}
	}

	return output.Record{
		File:     filePath,
		Analysis: output.ResultToMap(result),
		Flashes:  len(input.Flashes),
		Timing:   timing,
	}
}

// readFlashes reads a flash sidecar. A missing sidecar is an empty input.
func readFlashes(path string) (brontes.Input, error) {
	data, err := os.ReadFile(path) //nolint:gosec // sidecar next to a user recording
	if errors.Is(err, fs.ErrNotExist) {
		return brontes.Input{}, nil
	}

	if err != nil {
		return brontes.Input{}, err
	}

	var input brontes.Input

	for number, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		flash, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return brontes.Input{}, fmt.Errorf("%s:%d: %w", path, number+1, err)
		}

		input.Flashes = append(input.Flashes, flash)
	}

	return input, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func collectRecordings(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if slices.Contains(recordingExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)

	return files, nil
}
