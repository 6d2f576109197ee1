//nolint:wrapcheck
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/farcloser/primordium/format"
	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes/internal/config"
	"github.com/farcloser/brontes/internal/output"
)

var errConfigMismatch = errors.New("configuration differs from the recorded run")

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a configuration and print the values derived from it",
		Flags: []cli.Flag{
			configFlag(),
			formatFlag(),
			&cli.StringFlag{
				Name:  "meta",
				Usage: "Compare against the meta.json of an earlier run",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.String("config")

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			formatter, err := format.GetFormatter(cmd.String("format"))
			if err != nil {
				return err
			}

			computed := cfg.Compute()

			meta := map[string]any{
				"detection": map[string]any{
					"frame_samples": computed.FrameSamples,
					"hop_samples":   computed.HopSamples,
					"overlap":       fmt.Sprintf("%.1f%%", computed.FrameOverlap*100), //nolint:mnd // percent
				},
				"stft": map[string]any{
					"window_samples":    computed.STFTWindow,
					"hop_samples":       computed.STFTHop,
					"overlap":           fmt.Sprintf("%.1f%%", computed.STFTOverlap*100), //nolint:mnd // percent
					"frequency_step_hz": computed.FrequencyStepHz,
					"nyquist_hz":        computed.Nyquist,
				},
				"distance": map[string]any{
					"speed_of_sound_model_m_s": computed.SpeedOfSoundModel,
					"speed_of_sound_config":    cfg.Distance.SpeedOfSound,
					"consistent":               computed.SpeedOfSoundAgrees,
				},
				"feature_count": computed.FeatureCount,
			}

			hash, err := config.Hash(cfg)
			if err != nil {
				return err
			}

			meta["config_hash"] = hash

			var mismatch error

			if runPath := cmd.String("meta"); runPath != "" {
				run, err := output.ReadMeta(runPath)
				if err != nil {
					return err
				}

				current := &output.Meta{ConfigHash: hash}
				meta["run"] = map[string]any{
					"source":      run.Source,
					"version":     run.Version,
					"config_hash": run.ConfigHash,
					"same_config": current.SameConfig(run),
				}

				if !current.SameConfig(run) {
					mismatch = fmt.Errorf("%w: %s", errConfigMismatch, runPath)
				}
			}

			if !computed.SpeedOfSoundAgrees {
				meta["warning"] = fmt.Sprintf(
					"distance.speed_of_sound %v m/s differs from %.1f m/s at %v °C; the temperature model is used",
					cfg.Distance.SpeedOfSound,
					computed.SpeedOfSoundModel,
					cfg.Distance.ReferenceTemp,
				)
			}

			object := path
			if object == "" {
				object = "defaults"
			}

			if err = formatter.PrintAll([]*format.Data{{Object: object, Meta: meta}}, os.Stdout); err != nil {
				return err
			}

			return mismatch
		},
	}
}
