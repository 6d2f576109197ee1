//nolint:wrapcheck
package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes/internal/source"
)

func processCommand() *cli.Command {
	return &cli.Command{
		Name:      "process",
		Usage:     "Extract the audio of any recording (video included) with ffmpeg and detect thunder events",
		ArgsUsage: "<file>",
		Flags:     runFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: file path, got %d", errArgCount, cmd.NArg())
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			filePath := cmd.Args().First()

			buffer, err := source.Load(ctx, filePath, cfg.Audio.SampleRate)
			if err != nil {
				return fmt.Errorf("loading %s: %w", filePath, err)
			}

			return runPipeline(ctx, cmd, cfg, filePath, buffer)
		},
	}
}
