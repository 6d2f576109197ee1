package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700) //nolint:mnd // mel scale constants
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1) //nolint:mnd // mel scale constants
}

// melFilterbank builds nMels triangular filters over the bins of an nfft point real FFT,
// centres evenly spaced on the mel scale between low and high. Rows are filters.
func melFilterbank(nMels, nfft, sampleRate int, low, high float64) *mat.Dense {
	bins := nfft/2 + 1
	edges := make([]float64, nMels+2)

	lowMel, highMel := hzToMel(low), hzToMel(high)
	for i := range edges {
		edges[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(nMels+1))
	}

	binHz := float64(sampleRate) / float64(nfft)
	bank := mat.NewDense(nMels, bins, nil)

	for m := range nMels {
		left, centre, right := edges[m], edges[m+1], edges[m+2]

		for k := range bins {
			f := float64(k) * binHz

			switch {
			case f > left && f <= centre:
				bank.Set(m, k, (f-left)/(centre-left))
			case f > centre && f < right:
				bank.Set(m, k, (right-f)/(right-centre))
			}
		}
	}

	return bank
}

// dctMatrix returns the orthonormal DCT-II basis, n coefficients by size inputs.
func dctMatrix(n, size int) *mat.Dense {
	basis := mat.NewDense(n, size, nil)
	scale0 := math.Sqrt(1 / float64(size))
	scale := math.Sqrt(2 / float64(size))

	for k := range n {
		s := scale
		if k == 0 {
			s = scale0
		}

		for j := range size {
			basis.Set(k, j, s*math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*float64(size))))
		}
	}

	return basis
}

// mfcc projects a power spectrogram (frames by bins) to cepstral coefficients (frames by n).
func mfcc(power *mat.Dense, bank, dct *mat.Dense) *mat.Dense {
	frames, _ := power.Dims()
	nMels, _ := bank.Dims()
	nCoeffs, _ := dct.Dims()

	logMel := mat.NewDense(frames, nMels, nil)
	logMel.Mul(power, bank.T())
	logMel.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(v+melEpsilon) //nolint:mnd // power to dB
	}, logMel)

	out := mat.NewDense(frames, nCoeffs, nil)
	out.Mul(logMel, dct.T())

	return out
}

const melEpsilon = 1e-10
