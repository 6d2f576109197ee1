package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	envelopeMs       = 5.0
	envelopeFraction = 0.1 // onset and decay level, relative to the envelope peak
)

type timeFeatures struct {
	duration, peak, rms, crest, zcr, attack, decay float64
}

func computeTime(x, envelope []float64, sampleRate int) timeFeatures {
	rate := float64(sampleRate)

	var peak, sumSquares float64

	crossings := 0

	for i, v := range x {
		peak = max(peak, math.Abs(v))
		sumSquares += v * v

		if i > 0 && (x[i-1] >= 0) != (v >= 0) {
			crossings++
		}
	}

	rms := math.Sqrt(sumSquares / float64(len(x)))
	duration := float64(len(x)) / rate

	attack, decay := envelopeTimes(envelope, rate)

	return timeFeatures{
		duration: duration,
		peak:     peak,
		rms:      rms,
		crest:    peak / rms,
		zcr:      float64(crossings) / duration,
		attack:   attack,
		decay:    decay,
	}
}

// envelopeTimes measures the rise from the first sample above envelopeFraction of the peak to the
// peak, and the fall from the peak to the first sample below that level (or the slice end).
func envelopeTimes(envelope []float64, rate float64) (attack, decay float64) {
	peakIdx := floats.MaxIdx(envelope)
	level := envelopeFraction * envelope[peakIdx]

	onset := peakIdx
	for i := range peakIdx {
		if envelope[i] >= level {
			onset = i

			break
		}
	}

	end := len(envelope)
	for i := peakIdx + 1; i < len(envelope); i++ {
		if envelope[i] < level {
			end = i

			break
		}
	}

	return float64(peakIdx-onset) / rate, float64(end-peakIdx) / rate
}

// movingRMS returns a centered moving RMS of x over window samples, computed from a prefix sum.
func movingRMS(x []float64, window int) []float64 {
	window = max(1, window)
	half := window / 2

	prefix := make([]float64, len(x)+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v*v
	}

	out := make([]float64, len(x))
	for i := range x {
		lo := max(0, i-half)
		hi := min(len(x), i-half+window)
		out[i] = math.Sqrt(max(0, prefix[hi]-prefix[lo]) / float64(hi-lo))
	}

	return out
}
