// Package ffmpeg decodes any container ffmpeg understands into raw mono PCM.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/brontes/internal/integration/binary"
	"github.com/farcloser/brontes/internal/types"
)

// Format is the PCM layout Decode writes for a given sample rate.
func Format(sampleRate int) types.PCMFormat {
	return types.PCMFormat{SampleRate: sampleRate, BitDepth: types.Depth32, Channels: 1}
}

// Decode converts the first audio stream of filePath to mono PCM at sampleRate (see Format) and
// writes it to output. Channels are downmixed and the stream resampled by ffmpeg.
func Decode(ctx context.Context, filePath string, output io.Writer, streamIndex, sampleRate int) error {
	slog.Debug("ffmpeg.Decode", "file path", filePath, "stream index", streamIndex, "sample rate", sampleRate, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-nostdin",
		"-i", filePath,
		"-map", "0:a:"+strconv.Itoa(streamIndex),
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", sampleFormat,
		"-acodec", codec,
		"-v", "quiet",
		"-",
	)

	cmd.Stdout = output

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.Decode", "file path", filePath, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.Decode", "file path", filePath, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	slog.Debug("ffmpeg.Decode", "file path", filePath, "stage", "done")

	return nil
}
