//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/config"
	"github.com/farcloser/brontes/internal/observability"
	"github.com/farcloser/brontes/internal/output"
)

var (
	errArgCount     = errors.New("expected exactly one argument")
	errInvalidDelay = errors.New("expected <event id>:<seconds>")
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file (defaults apply when omitted)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: console, json, markdown",
		Value:   "console",
	}
}

// runFlags are shared by every command that runs the pipeline.
func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		formatFlag(),
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Write events.csv, features.csv and distances.csv into this directory",
		},
		&cli.FloatSliceFlag{
			Name:  "flash",
			Usage: "Flash timestamp in seconds on the recording time base (repeatable)",
		},
		&cli.StringSliceFlag{
			Name:  "delay",
			Usage: "Explicit flash to thunder delay as <event id>:<seconds> (repeatable)",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Feature extraction workers, 0 for one per CPU (overrides features.workers)",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write run metrics to this file in the Prometheus text format",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Aliases: []string{"D"},
			Usage:   "Include the full run report in output",
		},
	}
}

func loadConfig(cmd *cli.Command) (brontes.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return brontes.Config{}, err
	}

	if cmd.IsSet("workers") {
		cfg.Features.Workers = cmd.Int("workers")
		if err = cfg.Validate(); err != nil {
			return brontes.Config{}, err
		}
	}

	return cfg, nil
}

func parseInput(cmd *cli.Command) (brontes.Input, error) {
	input := brontes.Input{Flashes: cmd.FloatSlice("flash")}

	for _, raw := range cmd.StringSlice("delay") {
		id, seconds, ok := strings.Cut(raw, ":")
		if !ok {
			return input, fmt.Errorf("--delay %q: %w", raw, errInvalidDelay)
		}

		eventID, err := strconv.Atoi(id)
		if err != nil {
			return input, fmt.Errorf("--delay %q: %w: %w", raw, errInvalidDelay, err)
		}

		delay, err := strconv.ParseFloat(seconds, 64)
		if err != nil {
			return input, fmt.Errorf("--delay %q: %w: %w", raw, errInvalidDelay, err)
		}

		if input.Delays == nil {
			input.Delays = map[int]float64{}
		}

		input.Delays[eventID] = delay
	}

	return input, nil
}

// runPipeline runs one buffer through the pipeline and writes every requested output.
func runPipeline(
	ctx context.Context,
	cmd *cli.Command,
	cfg brontes.Config,
	label string,
	buffer *brontes.AudioBuffer,
) error {
	input, err := parseInput(cmd)
	if err != nil {
		return err
	}

	pipeline, err := brontes.New(cfg)
	if err != nil {
		return err
	}

	result, runErr := pipeline.Run(ctx, buffer, input)

	if path := cmd.String("metrics-file"); path != "" {
		reg := prometheus.NewRegistry()
		observability.NewMetrics(reg).Observe(result)

		if err = observability.WriteTextfile(path, reg); err != nil {
			slog.Error("writing metrics", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("%s: %w", label, runErr)
	}

	if dir := cmd.String("output-dir"); dir != "" {
		meta, err := output.NewMeta(label, cfg, result)
		if err != nil {
			return err
		}

		paths, err := output.WriteTables(dir, result, meta, cfg.Distance.EnableFlashAlignment)
		if err != nil {
			return err
		}

		slog.Info("tables written", "paths", paths)
	}

	return outputResult(label, result, cmd.String("format"), cmd.Bool("debug"))
}
