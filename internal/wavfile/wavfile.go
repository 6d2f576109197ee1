// Package wavfile reads and writes PCM WAV files as mono audio buffers.
package wavfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/farcloser/primordium/fault"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/farcloser/brontes/internal/pcm"
	"github.com/farcloser/brontes/internal/types"
)

const (
	formatPCM = 1
	chunkSize = 1 << 16
)

var (
	errInvalidWAV  = errors.New("not a valid WAV file")
	errUnsupported = errors.New("unsupported WAV format")
)

// Read decodes a PCM WAV file and averages its channels down to mono.
func Read(path string) (*types.AudioBuffer, error) {
	file, err := os.Open(path) //nolint:gosec // CLI tool opens user-specified audio files
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}
	defer file.Close()

	return Decode(file)
}

// Decode reads a WAV stream.
func Decode(reader io.ReadSeeker) (*types.AudioBuffer, error) {
	decoder := wav.NewDecoder(reader)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, errInvalidWAV)
	}

	slog.Debug("wavfile.Decode",
		"sample rate", decoder.SampleRate,
		"bit depth", decoder.BitDepth,
		"channels", decoder.NumChans,
	)

	if decoder.WavAudioFormat != formatPCM {
		return nil, fmt.Errorf("%w: audio format %d (only integer PCM)", errUnsupported, decoder.WavAudioFormat)
	}

	divisor := pcm.MaxValue(types.BitDepth(decoder.BitDepth))
	if divisor == 0 {
		return nil, fmt.Errorf("%w: %d bit", errUnsupported, decoder.BitDepth)
	}

	numChannels := int(decoder.NumChans)
	if numChannels == 0 {
		return nil, fmt.Errorf("%w: no channels", errUnsupported)
	}

	chunk := &audio.IntBuffer{
		Data:   make([]int, chunkSize*numChannels),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: numChannels},
	}

	var samples []float64

	for {
		n, err := decoder.PCMBuffer(chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}

		if n == 0 {
			break
		}

		for i := 0; i+numChannels <= n; i += numChannels {
			var sum float64
			for ch := range numChannels {
				sum += float64(chunk.Data[i+ch])
			}

			samples = append(samples, sum/float64(numChannels)/divisor)
		}
	}

	return &types.AudioBuffer{
		Samples:    samples,
		SampleRate: int(decoder.SampleRate),
		Channels:   1,
	}, nil
}

// Write encodes a mono buffer as integer PCM. Samples are clamped to [-1, 1].
func Write(path string, buffer *types.AudioBuffer, depth types.BitDepth) error {
	divisor := pcm.MaxValue(depth)
	if divisor == 0 {
		return fmt.Errorf("%w: %d bit", errUnsupported, depth)
	}

	file, err := os.Create(path) //nolint:gosec // caller chooses the destination
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, buffer.SampleRate, int(depth), 1, formatPCM) //nolint:gosec // bit depth is small

	data := make([]int, len(buffer.Samples))
	for i, v := range buffer.Samples {
		data[i] = int(math.Max(-divisor, math.Min(divisor-1, math.Round(v*divisor))))
	}

	if err = encoder.Write(&audio.IntBuffer{
		Data:   data,
		Format: &audio.Format{SampleRate: buffer.SampleRate, NumChannels: 1},
	}); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return encoder.Close()
}
