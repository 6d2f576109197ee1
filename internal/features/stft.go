package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/brontes/internal/analyzer"
)

type stftFeatures struct {
	frames                    int
	centroidMean, centroidStd float64
	fluxMean, fluxMax         float64
	power                     *mat.Dense // frames by bins
}

// computeSTFT runs a Hann windowed short time transform. A slice shorter than one window is
// zero padded to a single frame.
func computeSTFT(x, window []float64, hop, sampleRate int) stftFeatures {
	size := len(window)
	bins := size/2 + 1

	count := 1
	if len(x) > size {
		count += (len(x) - size) / hop
	}

	fft := fourier.NewFFT(size)
	binHz := float64(sampleRate) / float64(size)

	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * binHz
	}

	power := mat.NewDense(count, bins, nil)
	centroids := make([]float64, count)
	fluxes := make([]float64, 0, count)

	frame := make([]float64, size)
	prev := make([]float64, bins)
	mags := make([]float64, bins)

	var coeffs []complex128

	for f := range count {
		clear(frame)

		start := f * hop
		for i := range size {
			if start+i >= len(x) {
				break
			}

			frame[i] = x[start+i] * window[i]
		}

		coeffs = fft.Coefficients(coeffs, frame)

		for k, c := range coeffs {
			re, im := real(c), imag(c)
			p := re*re + im*im
			power.Set(f, k, p)
			mags[k] = math.Sqrt(p)
		}

		if total := floats.Sum(mags); total > 0 {
			centroids[f] = floats.Dot(freqs, mags) / total
		}

		if f > 0 {
			fluxes = append(fluxes, analyzer.Flux(prev, mags))
		}

		prev, mags = mags, prev
	}

	out := stftFeatures{frames: count, power: power}
	out.centroidMean, out.centroidStd = stat.PopMeanStdDev(centroids, nil)

	if len(fluxes) > 0 {
		out.fluxMean = stat.Mean(fluxes, nil)
		out.fluxMax = floats.Max(fluxes)
	}

	return out
}
