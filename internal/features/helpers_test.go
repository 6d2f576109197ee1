package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMelScale(t *testing.T) {
	assert.InDelta(t, 1000, hzToMel(1000), 0.5)
	assert.InDelta(t, 440, melToHz(hzToMel(440)), 1e-9)
}

func TestMelFilterbank(t *testing.T) {
	bank := melFilterbank(64, 4096, 48000, 20, 6000)

	rows, cols := bank.Dims()
	require.Equal(t, 64, rows)
	require.Equal(t, 2049, cols)

	for m := range rows {
		row := mat.Row(nil, m, bank)

		var peak float64
		for _, w := range row {
			assert.GreaterOrEqual(t, w, 0.0)
			peak = max(peak, w)
		}

		assert.LessOrEqual(t, peak, 1.0)
		assert.Positive(t, peak, "filter %d covers no bin", m)
	}

	// Nothing above the top edge.
	assert.Zero(t, mat.Sum(bank.Slice(0, 64, 513, 2049)))
}

func TestDCTOrthonormal(t *testing.T) {
	basis := dctMatrix(16, 16)

	var product mat.Dense
	product.Mul(basis, basis.T())

	assert.True(t, mat.EqualApprox(&product, identity(16), 1e-12))
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := range n {
		m.Set(i, i, 1)
	}

	return m
}

func TestMovingRMS(t *testing.T) {
	constant := []float64{0.5, -0.5, 0.5, -0.5, 0.5, -0.5}
	for _, v := range movingRMS(constant, 3) {
		assert.InDelta(t, 0.5, v, 1e-12)
	}

	assert.Equal(t, []float64{1, 2}, movingRMS([]float64{-1, 2}, 0))
}

func TestEnvelopeTimes(t *testing.T) {
	envelope := []float64{0, 0, 0.5, 1, 0.8, 0.4, 0.05, 0}

	attack, decay := envelopeTimes(envelope, 1)
	assert.InDelta(t, 1, attack, 1e-12)
	assert.InDelta(t, 3, decay, 1e-12)

	attack, decay = envelopeTimes([]float64{1, 0.9, 0.8}, 1)
	assert.Zero(t, attack)
	assert.InDelta(t, 3, decay, 1e-12, "decay runs to the slice end")
}

func TestWaveletResponsePeaks(t *testing.T) {
	for _, w := range []Wavelet{WaveletMorlet, WaveletMexicanHat} {
		omega := 2 * math.Pi * 440

		assert.InDelta(t, 1, w.response(omega, 440), 1e-12, string(w))
		assert.Less(t, w.response(2*omega, 440), 1.0)
		assert.Less(t, w.response(omega/2, 440), 1.0)
	}

	assert.Zero(t, WaveletMorlet.response(-1, 440), "morlet is analytic")
}

func TestCWTFrequencies(t *testing.T) {
	centres := cwtFrequencies(32, 48000)
	require.Len(t, centres, 32)
	assert.InDelta(t, 20, centres[0], 1e-9)
	assert.InDelta(t, 6000, centres[31], 1e-6)

	low := cwtFrequencies(8, 8000)
	assert.InDelta(t, 3600, low[7], 1e-6)
}

func TestRolloffAndBands(t *testing.T) {
	spec := spectrum{
		freqs: []float64{0, 50, 200, 1000},
		mags:  []float64{0, 1, 1, 1},
		power: []float64{0, 1, 1, 2},
	}

	assert.InDelta(t, 1000, rolloff(spec, 0.85), 1e-12)
	assert.InDelta(t, 200, rolloff(spec, 0.5), 1e-12)
	assert.Equal(t, []float64{0.25, 0.25, 0.5}, bandFractions(spec))
}
