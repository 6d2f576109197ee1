// Package source loads a recording into a mono buffer at the pipeline sample rate.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/farcloser/brontes/internal/integration/ffmpeg"
	"github.com/farcloser/brontes/internal/integration/ffprobe"
	"github.com/farcloser/brontes/internal/pcm"
	"github.com/farcloser/brontes/internal/types"
	"github.com/farcloser/brontes/internal/wavfile"
)

var errRateMismatch = errors.New("sample rate mismatch")

// Load reads filePath as mono samples at sampleRate.
// Integer PCM WAV files already at sampleRate are decoded natively. Anything else (other
// containers, float WAV, other rates) goes through ffprobe and ffmpeg, which must be installed.
func Load(ctx context.Context, filePath string, sampleRate int) (*types.AudioBuffer, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".wav") {
		buffer, err := wavfile.Read(filePath)
		if err == nil && buffer.SampleRate == sampleRate {
			return buffer, nil
		}

		if err == nil {
			err = fmt.Errorf("%w: %d Hz", errRateMismatch, buffer.SampleRate)
		}

		slog.Debug("source.Load", "file path", filePath, "native decode", err, "stage", "fallback")
	}

	return Transcode(ctx, filePath, sampleRate)
}

// Transcode decodes filePath with ffmpeg.
func Transcode(ctx context.Context, filePath string, sampleRate int) (*types.AudioBuffer, error) {
	probe, err := ffprobe.Probe(ctx, filePath)
	if err != nil {
		return nil, err
	}

	stream, err := probe.Audio(0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	slog.Debug("source.Transcode",
		"file path", filePath,
		"container", probe.Format.FormatName,
		"codec", stream.CodecName,
		"sample rate", stream.Rate(),
		"channels", stream.Channels,
		"bit depth", stream.BitDepth(),
	)

	var raw bytes.Buffer
	if err = ffmpeg.Decode(ctx, filePath, &raw, 0, sampleRate); err != nil {
		return nil, err
	}

	return pcm.Decode(&raw, ffmpeg.Format(sampleRate))
}
