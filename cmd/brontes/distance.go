//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes/internal/config"
	"github.com/farcloser/brontes/internal/distance"
	"github.com/farcloser/brontes/internal/output"
)

var errNoDelay = errors.New("expected at least one flash to thunder delay in seconds")

func distanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "distance",
		Usage:     "Estimate strike distances from flash to thunder delays",
		ArgsUsage: "<seconds> [seconds...]",
		Flags: []cli.Flag{
			configFlag(),
			formatFlag(),
			&cli.FloatFlag{
				Name:    "temp",
				Aliases: []string{"t"},
				Usage:   "Air temperature in °C (overrides distance.reference_temp)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errNoDelay
			}

			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			opts := distance.Options{
				ReferenceTempC:    cfg.Distance.ReferenceTemp,
				DeltaTUncertainty: cfg.Distance.DeltaTUncertainty,
				TempUncertainty:   cfg.Distance.TempUncertainty,
			}
			if cmd.IsSet("temp") {
				opts.ReferenceTempC = cmd.Float("temp")
			}

			formatter, err := format.GetFormatter(cmd.String("format"))
			if err != nil {
				return err
			}

			data := make([]*format.Data, 0, cmd.NArg())

			for i, arg := range cmd.Args().Slice() {
				deltaT, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("%q: %w", arg, errNoDelay)
				}

				estimate, err := distance.Estimate(i+1, deltaT, opts)
				if err != nil {
					return err
				}

				data = append(data, &format.Data{
					Object: arg + " s",
					Meta:   output.DistanceToMap(estimate),
				})
			}

			return formatter.PrintAll(data, os.Stdout)
		},
	}
}
