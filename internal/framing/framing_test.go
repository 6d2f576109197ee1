package framing_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/brontes/internal/framing"
	"github.com/farcloser/brontes/internal/types"
)

func buffer(n int) *types.AudioBuffer {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = float64(i)
	}

	return &types.AudioBuffer{Samples: samples, SampleRate: 10, Channels: 1}
}

func TestSampleCount(t *testing.T) {
	assert.Equal(t, 960, framing.SampleCount(20, 48000))
	assert.Equal(t, 480, framing.SampleCount(10, 48000))
	assert.Equal(t, 3072, framing.SampleCount(64, 48000))
	assert.Equal(t, 706, framing.SampleCount(16, 44100))
}

func TestNewRejectsBadLengths(t *testing.T) {
	for _, tc := range []struct {
		name          string
		frameLen, hop int
		samples       int
	}{
		{"hop equals frame", 4, 4, 100},
		{"hop longer than frame", 4, 5, 100},
		{"zero hop", 4, 0, 100},
		{"frame longer than buffer", 200, 100, 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := framing.New(buffer(tc.samples), tc.frameLen, tc.hop, false)
			require.ErrorIs(t, err, types.ErrConfig)
		})
	}
}

func TestFramesDropPartialTail(t *testing.T) {
	seg, err := framing.New(buffer(10), 4, 2, false)
	require.NoError(t, err)

	frames := slices.Collect(seg.Frames())
	require.Len(t, frames, 4)
	assert.Equal(t, seg.Count(), len(frames))

	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, i*2, f.Start)
		assert.Equal(t, 4, f.Length)
		assert.Equal(t, []float64{float64(i * 2), float64(i*2 + 1), float64(i*2 + 2), float64(i*2 + 3)}, f.Samples)
	}

	assert.InDelta(t, 0.6, frames[3].Time, 1e-12)
	assert.InDelta(t, 1.0, frames[3].EndTime, 1e-12)
}

func TestFramesPadTail(t *testing.T) {
	seg, err := framing.New(buffer(9), 4, 2, true)
	require.NoError(t, err)

	frames := slices.Collect(seg.Frames())
	require.Len(t, frames, 4)

	last := frames[3]
	assert.Equal(t, 6, last.Start)
	assert.Equal(t, 3, last.Length)
	assert.Equal(t, []float64{6, 7, 8, 0}, last.Samples)
	assert.InDelta(t, 0.9, last.EndTime, 1e-12)
}

func TestFramesRestartable(t *testing.T) {
	seg, err := framing.New(buffer(50), 8, 4, false)
	require.NoError(t, err)

	first := slices.Collect(seg.Frames())

	// Break out early, then iterate again in full.
	for f := range seg.Frames() {
		if f.Index == 2 {
			break
		}
	}

	assert.Equal(t, first, slices.Collect(seg.Frames()))
}
