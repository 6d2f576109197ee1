// Package dsp holds small signal helpers shared by the analyzer, the feature extractor and the preprocessor.
package dsp

import (
	"math"
	"math/cmplx"
)

// Floor is the dB value reported in place of log(0).
const Floor = -120.0

// Epsilon is added to mean square energy before taking the log.
const Epsilon = 1e-12

// Hann returns a symmetric Hann window of the given size.
func Hann(size int) []float64 {
	window := make([]float64, size)
	if size == 1 {
		window[0] = 1

		return window
	}

	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}

	return window
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// NearestPowerOfTwo returns the power of two closest to n. Ties round up.
func NearestPowerOfTwo(n int) int {
	upper := NextPowerOfTwo(n)
	lower := upper >> 1

	if lower < 1 || upper-n <= n-lower {
		return upper
	}

	return lower
}

// Magnitudes writes |c| for every coefficient into dst, growing it if needed.
func Magnitudes(dst []float64, coeffs []complex128) []float64 {
	if cap(dst) < len(coeffs) {
		dst = make([]float64, len(coeffs))
	}

	dst = dst[:len(coeffs)]
	for i, c := range coeffs {
		dst[i] = cmplx.Abs(c)
	}

	return dst
}

// PowerDB converts a mean square value to dB with the Epsilon guard.
func PowerDB(meanSquare float64) float64 {
	return 10 * math.Log10(meanSquare+Epsilon)
}

// MeanSquare of x. Zero for an empty slice.
func MeanSquare(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return sum / float64(len(x))
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
