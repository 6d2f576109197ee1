// Package analyzer computes per-frame energy and spectral flux.
package analyzer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/types"
)

// silentNorm is the spectrum norm under which two consecutive spectra are both considered silent.
const silentNorm = 1e-10

// Analyzer is stateful: it keeps the previous frame magnitude spectrum and nothing else.
// It is not safe for concurrent use.
type Analyzer struct {
	frameLen int
	fft      *fourier.FFT
	window   []float64
	windowed []float64
	coeffs   []complex128

	prev    []float64
	current []float64
	hasPrev bool
}

// New creates an analyzer for frames of frameLen samples.
func New(frameLen int) *Analyzer {
	return &Analyzer{
		frameLen: frameLen,
		fft:      fourier.NewFFT(frameLen),
		window:   dsp.Hann(frameLen),
		windowed: make([]float64, frameLen),
		prev:     make([]float64, frameLen/2+1),
		current:  make([]float64, frameLen/2+1),
	}
}

// Reset forgets the previous spectrum.
func (a *Analyzer) Reset() {
	a.hasPrev = false
}

// EnergyDB returns 10*log10(mean(x^2) + 1e-12).
func EnergyDB(samples []float64) float64 {
	return dsp.PowerDB(dsp.MeanSquare(samples))
}

// Analyze returns a copy of frame with EnergyDB and SpectralFlux filled in.
// On a numeric anomaly the previous spectrum is left untouched.
func (a *Analyzer) Analyze(frame types.Frame) (types.Frame, error) {
	if len(frame.Samples) != a.frameLen {
		return frame, fmt.Errorf(
			"%w: frame %d has %d samples, expected %d",
			types.ErrInput,
			frame.Index,
			len(frame.Samples),
			a.frameLen,
		)
	}

	energy := EnergyDB(frame.Samples)

	for i, v := range frame.Samples {
		a.windowed[i] = v * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.windowed)
	a.current = dsp.Magnitudes(a.current, a.coeffs)

	flux := 0.0
	if a.hasPrev {
		flux = Flux(a.prev, a.current)
	}

	if !dsp.Finite(energy) || !dsp.Finite(flux) {
		return frame, fmt.Errorf(
			"%w: frame %d: energy %v, flux %v",
			types.ErrNumericAnomaly,
			frame.Index,
			energy,
			flux,
		)
	}

	a.prev, a.current = a.current, a.prev
	a.hasPrev = true

	frame.EnergyDB = energy
	frame.SpectralFlux = flux

	return frame, nil
}

// Flux is the half-wave rectified L2 distance between two magnitude spectra, normalized by the larger
// spectrum norm and clipped to [0, 1].
func Flux(prev, current []float64) float64 {
	var rise, prevNorm, currentNorm float64

	for i := range current {
		if d := current[i] - prev[i]; d > 0 {
			rise += d * d
		}

		prevNorm += prev[i] * prev[i]
		currentNorm += current[i] * current[i]
	}

	norm := math.Sqrt(max(prevNorm, currentNorm))
	if norm < silentNorm {
		return 0
	}

	return min(1, max(0, math.Sqrt(rise)/norm))
}
