// Package pcm decodes raw little-endian signed PCM into a mono audio buffer.
package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/brontes/internal/types"
)

const (
	MaxValue16 = 32768.0      // 2^15, 16-bit signed PCM divisor
	MaxValue24 = 8388608.0    // 2^23
	MaxValue32 = 2147483648.0 // 2^31
)

var errUnsupportedDepth = errors.New("unsupported bit depth")

// MaxValue returns the normalization divisor for a bit depth, or 0 if unsupported.
func MaxValue(depth types.BitDepth) float64 {
	switch depth {
	case types.Depth16:
		return MaxValue16
	case types.Depth24:
		return MaxValue24
	case types.Depth32:
		return MaxValue32
	}

	return 0
}

// Decode reads interleaved PCM until EOF and averages channels down to mono.
// A trailing incomplete frame is ignored.
func Decode(reader io.Reader, format types.PCMFormat) (*types.AudioBuffer, error) {
	maxVal := MaxValue(format.BitDepth)
	if maxVal == 0 {
		return nil, fmt.Errorf("%w: %d", errUnsupportedDepth, format.BitDepth)
	}

	if format.Channels == 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", types.ErrInput, format.Channels, format.SampleRate)
	}

	bytesPerSample := int(format.BitDepth / 8) //nolint:gosec // bit depth and channel count are small constants
	numChannels := int(format.Channels)        //nolint:gosec // channel count is small
	frameSize := bytesPerSample * numChannels
	buf := make([]byte, frameSize*4096)
	carry := 0

	var samples []float64

	for {
		n, err := reader.Read(buf[carry:])
		n += carry

		completeFrames := (n / frameSize) * frameSize
		data := buf[:completeFrames]

		for offset := 0; offset < len(data); offset += frameSize {
			var sum float64

			for ch := range numChannels {
				sum += decodeSample(data[offset+ch*bytesPerSample:], format.BitDepth) / maxVal
			}

			samples = append(samples, sum/float64(numChannels))
		}

		carry = copy(buf, buf[completeFrames:n])

		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
		}
	}

	return &types.AudioBuffer{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   1,
	}, nil
}

func decodeSample(data []byte, depth types.BitDepth) float64 {
	switch depth {
	case types.Depth16:
		return float64(int16(binary.LittleEndian.Uint16(data))) //nolint:gosec // two's complement conversion for signed PCM samples
	case types.Depth24:
		raw := int32(data[0]) | int32(data[1])<<8 | int32(data[2])<<16
		if raw&0x800000 != 0 {
			raw |= ^0xFFFFFF
		}

		return float64(raw)
	case types.Depth32:
		return float64(int32(binary.LittleEndian.Uint32(data))) //nolint:gosec // two's complement conversion for signed PCM samples
	}

	return 0
}
