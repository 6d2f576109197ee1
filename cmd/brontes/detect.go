//nolint:wrapcheck
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/brontes/internal/pcm"
	"github.com/farcloser/brontes/internal/types"
	"github.com/farcloser/brontes/internal/wavfile"
)

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Detect thunder events in a WAV file, or in raw PCM read from stdin",
		ArgsUsage: "<file.wav | ->",
		Flags: append(runFlags(),
			&cli.IntFlag{
				Name:    "bit-depth",
				Aliases: []string{"b"},
				Usage:   "Raw PCM bit depth (16, 24, or 32), stdin only",
				Value:   32,
			},
			&cli.IntFlag{
				Name:  "channels",
				Usage: "Raw PCM channel count, stdin only; channels are averaged to mono",
				Value: 1,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("%w: file path or \"-\" for stdin, got %d", errArgCount, cmd.NArg())
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			inputPath := cmd.Args().First()

			var buffer *types.AudioBuffer

			if inputPath == "-" {
				buffer, err = pcm.Decode(bufio.NewReader(os.Stdin), types.PCMFormat{
					SampleRate: cfg.Audio.SampleRate,
					BitDepth:   types.BitDepth(cmd.Int("bit-depth")), //nolint:gosec // validated by pcm.Decode
					Channels:   uint(max(0, cmd.Int("channels"))),    //nolint:gosec // not negative
				})
			} else {
				buffer, err = wavfile.Read(inputPath)
			}

			if err != nil {
				return fmt.Errorf("reading %s: %w", inputPath, err)
			}

			return runPipeline(ctx, cmd, cfg, inputPath, buffer)
		},
	}
}
