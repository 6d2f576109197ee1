package features

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/types"
)

// Wavelet family for the continuous wavelet transform.
type Wavelet string

const (
	WaveletMorlet     Wavelet = "morlet"
	WaveletMexicanHat Wavelet = "mexican_hat"
)

const (
	morletOmega0 = 6.0
	cwtMinHz     = 20.0
	cwtMaxHz     = 6000.0
	cwtNyquist   = 0.45 // highest centre frequency, as a fraction of the sample rate
)

// ParseWavelet accepts the configuration spelling of a wavelet family.
func ParseWavelet(name string) (Wavelet, error) {
	switch Wavelet(name) {
	case WaveletMorlet, WaveletMexicanHat:
		return Wavelet(name), nil
	case "mexh":
		return WaveletMexicanHat, nil
	}

	return "", fmt.Errorf("%w: unknown wavelet %q (expected morlet or mexican_hat)", types.ErrConfig, name)
}

// response is the unit peak frequency response of the wavelet at angular frequency omega for
// the given centre frequency.
func (w Wavelet) response(omega, centre float64) float64 {
	switch w {
	case WaveletMorlet:
		if omega <= 0 {
			return 0
		}

		scale := morletOmega0 / (2 * math.Pi * centre)
		d := scale*omega - morletOmega0

		return math.Exp(-d * d / 2) //nolint:mnd // gaussian
	case WaveletMexicanHat:
		scale := math.Sqrt2 / (2 * math.Pi * centre)
		u := scale * omega
		u2 := u * u

		return u2 / 2 * math.Exp(1-u2/2) //nolint:mnd // peak normalized
	}

	return 0
}

// cwtFrequencies returns log spaced centre frequencies for the given sample rate.
func cwtFrequencies(scales, sampleRate int) []float64 {
	top := min(cwtMaxHz, cwtNyquist*float64(sampleRate))

	return floats.LogSpan(make([]float64, scales), cwtMinHz, top)
}

type cwtFeatures struct {
	dominant, entropy, temporalCentroid float64
}

// computeCWT convolves x with each scale in the frequency domain. offset is the index of the event
// start within x, so the temporal centroid is relative to the event rather than the padded slice.
func computeCWT(x []float64, wavelet Wavelet, centres []float64, sampleRate, offset int) cwtFeatures {
	size := dsp.NextPowerOfTwo(2 * len(x))
	fft := fourier.NewCmplxFFT(size)

	input := make([]complex128, size)
	for i, v := range x {
		input[i] = complex(v, 0)
	}

	spectrum := fft.Coefficients(nil, input)
	filtered := make([]complex128, size)
	coeffs := make([]complex128, size)

	rate := float64(sampleRate)
	omegas := make([]float64, size)

	for k := range omegas {
		bin := k
		if k >= size/2 {
			bin -= size
		}

		omegas[k] = 2 * math.Pi * float64(bin) * rate / float64(size)
	}

	scaleEnergy := make([]float64, len(centres))
	timeEnergy := make([]float64, len(x))
	norm := float64(size)

	for s, centre := range centres {
		for k, c := range spectrum {
			filtered[k] = c * complex(wavelet.response(omegas[k], centre), 0)
		}

		coeffs = fft.Sequence(coeffs, filtered)

		for i := range x {
			e := cmplx.Abs(coeffs[i]) / norm
			e *= e
			scaleEnergy[s] += e
			timeEnergy[i] += e
		}
	}

	total := floats.Sum(scaleEnergy)

	var entropy float64
	for _, e := range scaleEnergy {
		if p := e / total; p > 0 {
			entropy -= p * math.Log(p)
		}
	}

	var weighted float64
	for i, e := range timeEnergy {
		weighted += float64(i-offset) / rate * e
	}

	return cwtFeatures{
		dominant:         centres[floats.MaxIdx(scaleEnergy)],
		entropy:          entropy / math.Log(float64(len(centres))),
		temporalCentroid: weighted / floats.Sum(timeEnergy),
	}
}
