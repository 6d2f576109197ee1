package dsp

import "math"

// Butterworth4 section quality factors: a 4th order Butterworth is two cascaded biquads.
//
//nolint:gochecknoglobals // effectively const
var butterworth4Q = [2]float64{0.5411961001461970, 1.3065629648763766}

// Biquad filter coefficients (a0 normalized to 1).
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// BiquadState is the transposed direct form II state of one section.
type BiquadState struct {
	z1, z2 float64
}

// Process filters one sample.
func (s *BiquadState) Process(b *Biquad, in float64) float64 {
	out := b.b0*in + s.z1
	s.z1 = b.b1*in - b.a1*out + s.z2
	s.z2 = b.b2*in - b.a2*out

	return out
}

// HighPass returns bilinear-transform high-pass coefficients.
func HighPass(cutoff float64, sampleRate int, q float64) Biquad {
	k := math.Tan(math.Pi * cutoff / float64(sampleRate))
	a0 := 1 + k/q + k*k

	return Biquad{
		b0: 1 / a0,
		b1: -2 / a0,
		b2: 1 / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// LowPass returns bilinear-transform low-pass coefficients.
func LowPass(cutoff float64, sampleRate int, q float64) Biquad {
	k := math.Tan(math.Pi * cutoff / float64(sampleRate))
	a0 := 1 + k/q + k*k

	return Biquad{
		b0: k * k / a0,
		b1: 2 * k * k / a0,
		b2: k * k / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// Cascade is a chain of biquad sections with their state.
type Cascade struct {
	sections []Biquad
	states   []BiquadState
}

// ButterworthHighPass4 builds a 4th order Butterworth high-pass.
func ButterworthHighPass4(cutoff float64, sampleRate int) *Cascade {
	return &Cascade{
		sections: []Biquad{
			HighPass(cutoff, sampleRate, butterworth4Q[0]),
			HighPass(cutoff, sampleRate, butterworth4Q[1]),
		},
		states: make([]BiquadState, 2),
	}
}

// ButterworthLowPass4 builds a 4th order Butterworth low-pass.
func ButterworthLowPass4(cutoff float64, sampleRate int) *Cascade {
	return &Cascade{
		sections: []Biquad{
			LowPass(cutoff, sampleRate, butterworth4Q[0]),
			LowPass(cutoff, sampleRate, butterworth4Q[1]),
		},
		states: make([]BiquadState, 2),
	}
}

// Process filters one sample through every section.
func (c *Cascade) Process(in float64) float64 {
	out := in
	for i := range c.sections {
		out = c.states[i].Process(&c.sections[i], out)
	}

	return out
}

// Reset clears the section state.
func (c *Cascade) Reset() {
	clear(c.states)
}
