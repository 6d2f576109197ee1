// Package preprocess band-limits and optionally normalizes a buffer before detection.
package preprocess

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/types"
)

// Method selects the normalization reference.
type Method string

const (
	MethodRMS  Method = "rms"
	MethodPeak Method = "peak"
)

// ParseMethod accepts the configuration spelling of a normalization method.
func ParseMethod(name string) (Method, error) {
	switch Method(name) {
	case MethodRMS, MethodPeak:
		return Method(name), nil
	}

	return "", fmt.Errorf("%w: unknown normalize method %q (expected rms or peak)", types.ErrConfig, name)
}

// Options controls preprocessing. A zero HighPassHz disables the high-pass, a zero LowPassHz the low-pass.
type Options struct {
	HighPassHz float64
	LowPassHz  float64
	Normalize  bool
	Method     Method
	TargetDB   float64 // dBFS
}

// Apply returns a filtered copy of buffer. The input is never modified.
// Both filters are causal 4th order Butterworth cascades, run forward once.
func Apply(buffer *types.AudioBuffer, opts Options) (*types.AudioBuffer, error) {
	nyquist := float64(buffer.SampleRate) / 2

	if opts.LowPassHz < 0 || opts.LowPassHz >= nyquist || opts.HighPassHz < 0 {
		return nil, fmt.Errorf(
			"%w: filter cutoffs %v/%v Hz at %d Hz",
			types.ErrConfig,
			opts.HighPassHz,
			opts.LowPassHz,
			buffer.SampleRate,
		)
	}

	if opts.LowPassHz > 0 && opts.HighPassHz >= opts.LowPassHz {
		return nil, fmt.Errorf("%w: high-pass %v Hz above low-pass %v Hz", types.ErrConfig, opts.HighPassHz, opts.LowPassHz)
	}

	out := make([]float64, len(buffer.Samples))
	copy(out, buffer.Samples)

	var chain []*dsp.Cascade
	if opts.HighPassHz > 0 {
		chain = append(chain, dsp.ButterworthHighPass4(opts.HighPassHz, buffer.SampleRate))
	}

	if opts.LowPassHz > 0 {
		chain = append(chain, dsp.ButterworthLowPass4(opts.LowPassHz, buffer.SampleRate))
	}

	for _, filter := range chain {
		for i, v := range out {
			out[i] = filter.Process(v)
		}
	}

	if opts.Normalize {
		gain, err := normalizationGain(out, opts)
		if err != nil {
			return nil, err
		}

		for i := range out {
			out[i] *= gain
		}

		slog.Debug("preprocess.Apply", "stage", "normalize", "method", opts.Method, "gain", gain)
	}

	return &types.AudioBuffer{
		Samples:    out,
		SampleRate: buffer.SampleRate,
		Channels:   buffer.Channels,
	}, nil
}

// normalizationGain returns the linear gain bringing the buffer to the target level. Silence is
// left untouched.
func normalizationGain(samples []float64, opts Options) (float64, error) {
	var level float64

	switch opts.Method {
	case MethodRMS, "":
		level = math.Sqrt(dsp.MeanSquare(samples))
	case MethodPeak:
		for _, v := range samples {
			level = max(level, math.Abs(v))
		}
	default:
		return 0, fmt.Errorf("%w: unknown normalize method %q", types.ErrConfig, opts.Method)
	}

	if level == 0 {
		return 1, nil
	}

	return math.Pow(10, opts.TargetDB/20) / level, nil //nolint:mnd // dB to amplitude
}
