package brontes_test

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farcloser/brontes"
)

const rate = 48000

// burst is a 200 Hz sine segment, -10 dB RMS.
type burst struct {
	start, end float64 // seconds
}

func signal(duration float64, bursts ...burst) *brontes.AudioBuffer {
	samples := make([]float64, int(duration*rate))
	amplitude := math.Sqrt(0.2)

	for _, b := range bursts {
		for i := int(b.start * rate); i < int(b.end*rate) && i < len(samples); i++ {
			samples[i] = amplitude * math.Sin(2*math.Pi*200*float64(i)/rate)
		}
	}

	return brontes.NewAudioBuffer(samples, rate)
}

func pipeline(t *testing.T, mutate ...func(*brontes.Config)) *brontes.Pipeline {
	t.Helper()

	cfg := brontes.DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	p, err := brontes.New(cfg)
	require.NoError(t, err)

	return p
}

func TestRunTone(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), signal(1.5, burst{0.5, 0.75}), brontes.Input{})
	require.NoError(t, err)

	require.Len(t, result.Events, 1)

	event := result.Events[0]
	assert.Equal(t, 1, event.ID)
	assert.InDelta(t, 0.5, event.StartTime, 0.02+1e-6)
	assert.InDelta(t, 0.75, event.EndTime, 0.02+1e-6)
	assert.InDelta(t, 0.25, event.Duration(), 0.01+1e-9)
	assert.InDelta(t, -10, event.PeakEnergyDB, 1)

	vector, ok := result.FeatureVector(event.ID)
	require.True(t, ok)
	assert.Equal(t, p.FeatureNames(), vector.Names)
	assert.Len(t, vector.Values, len(result.FeatureNames))
	assert.InDelta(t, 200, vector.Values["dominant_frequency"], 20)

	_, ok = result.Distance(event.ID)
	assert.False(t, ok, "no flash input, no distance")

	assert.Equal(t, 1, result.Report.Candidates)
	assert.Zero(t, result.Report.FramesSkipped)
	assert.Empty(t, result.Report.Anomalies)
	assert.Len(t, result.Report.Timings, 5)
}

func TestRunToneDurationOffGrid(t *testing.T) {
	p := pipeline(t)
	_, hop := p.Config().FrameSamples()
	hopSeconds := float64(hop) / rate

	for _, start := range []float64{0.5, 0.503, 0.5071, 0.3333, 0.2999, 0.5099} {
		t.Run(fmt.Sprintf("start %v", start), func(t *testing.T) {
			result, err := p.Run(context.Background(), signal(1.5, burst{start, start + 0.25}), brontes.Input{})
			require.NoError(t, err)
			require.Len(t, result.Events, 1)

			event := result.Events[0]
			assert.InDelta(t, 0.25, event.Duration(), hopSeconds+1e-9)
			assert.LessOrEqual(t, event.StartTime, start)
			assert.Less(t, event.EndTime, start+0.25)
		})
	}
}

func TestRunQuietInput(t *testing.T) {
	p := pipeline(t)

	result, err := p.Run(context.Background(), signal(2), brontes.Input{})
	require.NoError(t, err)
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Features)
	assert.Positive(t, result.Report.Frames)

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // test noise
	noise := make([]float64, 2*rate)

	for i := range noise {
		noise[i] = 0.01 * (2*rng.Float64() - 1)
	}

	result, err = p.Run(context.Background(), brontes.NewAudioBuffer(noise, rate), brontes.Input{})
	require.NoError(t, err)
	assert.Empty(t, result.Events)
}

func TestRunMergeAndFilter(t *testing.T) {
	p := pipeline(t)

	t.Run("close bursts merge", func(t *testing.T) {
		result, err := p.Run(context.Background(), signal(2, burst{0.5, 0.75}, burst{0.9, 1.15}), brontes.Input{})
		require.NoError(t, err)

		require.Len(t, result.Events, 1)
		assert.Equal(t, 2, result.Report.Candidates)
		assert.Equal(t, 1, result.Report.Merged)
		assert.InDelta(t, 0.5, result.Events[0].StartTime, 0.02+1e-6)
		assert.InDelta(t, 1.15, result.Events[0].EndTime, 0.02+1e-6)
	})

	t.Run("distant bursts stay apart", func(t *testing.T) {
		result, err := p.Run(context.Background(), signal(3, burst{0.5, 0.75}, burst{1.5, 1.75}), brontes.Input{})
		require.NoError(t, err)

		require.Len(t, result.Events, 2)
		assert.Equal(t, []int{1, 2}, []int{result.Events[0].ID, result.Events[1].ID})

		for i := 1; i < len(result.Events); i++ {
			assert.GreaterOrEqual(t, result.Events[i].StartTime-result.Events[i-1].EndTime, 0.3)
		}
	})

	t.Run("short burst is dropped", func(t *testing.T) {
		result, err := p.Run(context.Background(), signal(2, burst{0.5, 0.55}, burst{1.2, 1.5}), brontes.Input{})
		require.NoError(t, err)

		require.Len(t, result.Events, 1)
		assert.Equal(t, 1, result.Report.DroppedShort)
		assert.Equal(t, 1, result.Events[0].ID)
		assert.GreaterOrEqual(t, result.Events[0].Duration(), 0.15)
	})
}

func TestRunDistance(t *testing.T) {
	input := signal(3, burst{0.5, 0.75}, burst{1.5, 1.75})

	t.Run("explicit delay", func(t *testing.T) {
		result, err := pipeline(t).Run(context.Background(), input, brontes.Input{
			Delays: map[int]float64{1: 3.0},
		})
		require.NoError(t, err)

		d, ok := result.Distance(1)
		require.True(t, ok)
		assert.InDelta(t, 1030.5, d.DistanceM, 1e-9)
		assert.Less(t, d.LowerM, d.DistanceM)
		assert.Greater(t, d.UpperM, d.DistanceM)
		assert.Equal(t, "close", string(d.Class))

		_, ok = result.Distance(2)
		assert.False(t, ok)
	})

	t.Run("zero delay is not absent", func(t *testing.T) {
		result, err := pipeline(t).Run(context.Background(), input, brontes.Input{
			Delays: map[int]float64{2: 0},
		})
		require.NoError(t, err)

		d, ok := result.Distance(2)
		require.True(t, ok)
		assert.Zero(t, d.DistanceM)
	})

	t.Run("flash alignment", func(t *testing.T) {
		result, err := pipeline(t).Run(context.Background(), input, brontes.Input{Flashes: []float64{0.1, 1.0}})
		require.NoError(t, err)
		require.Len(t, result.Distances, 2)

		first, _ := result.Distance(1)
		second, _ := result.Distance(2)
		assert.InDelta(t, 0.4, first.DeltaT, 0.02+1e-6)
		assert.InDelta(t, 0.5, second.DeltaT, 0.02+1e-6)
	})

	t.Run("negative delay is skipped", func(t *testing.T) {
		result, err := pipeline(t).Run(context.Background(), input, brontes.Input{
			Delays: map[int]float64{1: -1, 2: 1},
		})
		require.NoError(t, err)

		assert.Len(t, result.Distances, 1)
		assert.Equal(t, 1, result.Report.DistanceSkipped)
		require.Len(t, result.Report.Anomalies, 1)
		assert.Equal(t, 1, result.Report.Anomalies[0].EventID)
	})

	t.Run("alignment disabled", func(t *testing.T) {
		p := pipeline(t, func(c *brontes.Config) { c.Distance.EnableFlashAlignment = false })

		result, err := p.Run(context.Background(), input, brontes.Input{Delays: map[int]float64{1: 3}})
		require.NoError(t, err)
		assert.Empty(t, result.Distances)
	})
}

func TestRunDeterministic(t *testing.T) {
	input := signal(3, burst{0.5, 0.75}, burst{1.5, 1.9})
	flashes := brontes.Input{Flashes: []float64{0.2}}

	first, err := pipeline(t, func(c *brontes.Config) { c.Features.Workers = 1 }).
		Run(context.Background(), input, flashes)
	require.NoError(t, err)

	second, err := pipeline(t, func(c *brontes.Config) { c.Features.Workers = 8 }).
		Run(context.Background(), input, flashes)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(brontes.Report{}, "Timings")); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestRunDoesNotModifyInput(t *testing.T) {
	input := signal(1.5, burst{0.5, 0.75})
	original := append([]float64(nil), input.Samples...)

	_, err := pipeline(t, func(c *brontes.Config) { c.Audio.Normalize = true }).
		Run(context.Background(), input, brontes.Input{})
	require.NoError(t, err)
	assert.Equal(t, original, input.Samples)
}

func TestRunInputErrors(t *testing.T) {
	p := pipeline(t)

	nan := signal(1)
	nan.Samples[100] = math.NaN()

	stereo := signal(1)
	stereo.Channels = 2

	for _, tc := range []struct {
		name   string
		buffer *brontes.AudioBuffer
	}{
		{"nil", nil},
		{"empty", brontes.NewAudioBuffer(nil, rate)},
		{"stereo", stereo},
		{"sample rate mismatch", brontes.NewAudioBuffer(make([]float64, 44100), 44100)},
		{"non finite sample", nan},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tc.buffer, brontes.Input{})
			require.Error(t, err)
			assert.ErrorIs(t, err, brontes.ErrInput)
		})
	}
}

func TestRunShorterThanFrame(t *testing.T) {
	_, err := pipeline(t).Run(context.Background(), brontes.NewAudioBuffer(make([]float64, 100), rate), brontes.Input{})
	require.ErrorIs(t, err, brontes.ErrConfig)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline(t).Run(ctx, signal(1.5, burst{0.5, 0.75}), brontes.Input{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*brontes.Config)
	}{
		{"hop equal to frame", func(c *brontes.Config) { c.Detect.HopLenMs = c.Detect.FrameLenMs }},
		{"hop and frame round to one sample", func(c *brontes.Config) {
			c.Detect.FrameLenMs = 0.03
			c.Detect.HopLenMs = 0.02
		}},
		{"hop rounds to zero samples", func(c *brontes.Config) {
			c.Detect.FrameLenMs = 0.04
			c.Detect.HopLenMs = 0.01
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := brontes.DefaultConfig()
			tc.mutate(&cfg)

			_, err := brontes.New(cfg)
			require.ErrorIs(t, err, brontes.ErrConfig)
		})
	}
}
