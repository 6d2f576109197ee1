package features

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/brontes/internal/dsp"
)

// Band limits for the energy fraction features, half-open [Low, High).
//
//nolint:gochecknoglobals // effectively const
var energyBands = []struct {
	name      string
	low, high float64
}{
	{"band_energy_20_100", 20, 100},
	{"band_energy_100_500", 100, 500},
	{"band_energy_500_6000", 500, 6000},
}

// spectrum is the Hann windowed, zero padded magnitude spectrum of a whole slice.
type spectrum struct {
	freqs []float64
	mags  []float64
	power []float64
}

func computeSpectrum(x []float64, sampleRate int) spectrum {
	size := max(2, dsp.NextPowerOfTwo(len(x))) //nolint:mnd // smallest meaningful FFT

	window := dsp.Hann(len(x))
	padded := make([]float64, size)

	for i, v := range x {
		padded[i] = v * window[i]
	}

	coeffs := fourier.NewFFT(size).Coefficients(nil, padded)
	mags := dsp.Magnitudes(nil, coeffs)

	freqs := make([]float64, len(mags))
	power := make([]float64, len(mags))
	binHz := float64(sampleRate) / float64(size)

	for i, m := range mags {
		freqs[i] = float64(i) * binHz
		power[i] = m * m
	}

	return spectrum{freqs: freqs, mags: mags, power: power}
}

type frequencyFeatures struct {
	centroid, bandwidth, rolloff, slope, dominant float64
}

func computeFrequency(spec spectrum, rolloffPercent float64) frequencyFeatures {
	totalMag := floats.Sum(spec.mags)
	centroid := floats.Dot(spec.freqs, spec.mags) / totalMag

	var spread float64
	for i, m := range spec.mags {
		d := spec.freqs[i] - centroid
		spread += m * d * d
	}

	return frequencyFeatures{
		centroid:  centroid,
		bandwidth: math.Sqrt(spread / totalMag),
		rolloff:   rolloff(spec, rolloffPercent),
		slope:     slope(spec),
		dominant:  spec.freqs[floats.MaxIdx(spec.mags)],
	}
}

// rolloff returns the lowest frequency under which the given share of the total power lies.
func rolloff(spec spectrum, percent float64) float64 {
	target := percent * floats.Sum(spec.power)

	var cumulative float64
	for i, p := range spec.power {
		cumulative += p
		if cumulative >= target {
			return spec.freqs[i]
		}
	}

	return spec.freqs[len(spec.freqs)-1]
}

// slope fits ln(magnitude) against ln(frequency), DC excluded.
func slope(spec spectrum) float64 {
	n := len(spec.mags) - 1
	if n < 2 {
		return 0
	}

	logF := make([]float64, n)
	logM := make([]float64, n)

	for i := range n {
		logF[i] = math.Log(spec.freqs[i+1])
		logM[i] = math.Log(spec.mags[i+1] + dsp.Epsilon)
	}

	_, beta := stat.LinearRegression(logF, logM, nil, false)

	return beta
}

// bandFractions returns the share of total power in each energy band.
func bandFractions(spec spectrum) []float64 {
	total := floats.Sum(spec.power)
	out := make([]float64, len(energyBands))

	for i, f := range spec.freqs {
		for b, band := range energyBands {
			if f >= band.low && f < band.high {
				out[b] += spec.power[i]
			}
		}
	}

	for b := range out {
		out[b] /= total
	}

	return out
}
