// Package features computes per-event feature vectors across the time, frequency, time-frequency and
// statistical domains.
package features

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/types"
)

const minSTFTWindow = 16

// Settings are the sample based feature parameters, derived once from the configuration.
type Settings struct {
	SampleRate     int
	RolloffPercent float64

	STFTWindow int // samples, a power of two
	STFTHop    int // samples

	NMels     int
	MFCCCount int
	MelLow    float64 // Hz
	MelHigh   float64 // Hz

	Wavelet Wavelet
	Scales  int

	PadSamples int // margin around the event for the time-frequency group
	Workers    int // 0 = number of CPUs
}

// Extractor holds the tables shared read-only by every extraction task.
type Extractor struct {
	settings Settings
	names    []string

	window  []float64
	bank    *mat.Dense
	dct     *mat.Dense
	centres []float64
}

// New validates settings and precomputes the Hann window, mel filterbank, DCT basis and wavelet centres.
func New(settings Settings) (*Extractor, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}

	bank := melFilterbank(settings.NMels, settings.STFTWindow, settings.SampleRate, settings.MelLow, settings.MelHigh)

	return &Extractor{
		settings: settings,
		names:    Names(settings.MFCCCount),
		window:   dsp.Hann(settings.STFTWindow),
		bank:     bank,
		dct:      dctMatrix(settings.MFCCCount, settings.NMels),
		centres:  cwtFrequencies(settings.Scales, settings.SampleRate),
	}, nil
}

func (s Settings) validate() error {
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", types.ErrConfig, s.SampleRate)
	case s.STFTWindow < minSTFTWindow || dsp.NextPowerOfTwo(s.STFTWindow) != s.STFTWindow:
		return fmt.Errorf("%w: stft window %d must be a power of two >= %d", types.ErrConfig, s.STFTWindow, minSTFTWindow)
	case s.STFTHop <= 0 || s.STFTHop > s.STFTWindow:
		return fmt.Errorf("%w: stft hop %d must be in (0, %d]", types.ErrConfig, s.STFTHop, s.STFTWindow)
	case s.MFCCCount < 1 || s.MFCCCount > s.NMels:
		return fmt.Errorf("%w: mfcc count %d must be in [1, %d]", types.ErrConfig, s.MFCCCount, s.NMels)
	case s.NMels > s.STFTWindow/2:
		return fmt.Errorf("%w: %d mel bands for %d stft bins", types.ErrConfig, s.NMels, s.STFTWindow/2+1)
	case s.MelLow < 0 || s.MelHigh <= s.MelLow || s.MelHigh > float64(s.SampleRate)/2:
		return fmt.Errorf("%w: mel range %v-%v Hz", types.ErrConfig, s.MelLow, s.MelHigh)
	case s.Scales < 2: //nolint:mnd // entropy needs two scales
		return fmt.Errorf("%w: cwt scales %d must be >= 2", types.ErrConfig, s.Scales)
	case s.RolloffPercent <= 0 || s.RolloffPercent > 1:
		return fmt.Errorf("%w: rolloff percent %v must be in (0, 1]", types.ErrConfig, s.RolloffPercent)
	case s.PadSamples < 0 || s.Workers < 0:
		return fmt.Errorf("%w: padding and workers must not be negative", types.ErrConfig)
	}

	if _, err := ParseWavelet(string(s.Wavelet)); err != nil {
		return err
	}

	return nil
}

// Names returns the feature column order for the given MFCC count.
func Names(mfccCount int) []string {
	names := []string{
		"duration",
		"peak_amplitude",
		"rms",
		"crest_factor",
		"zero_crossing_rate",
		"attack_time",
		"decay_time",
		"spectral_centroid",
		"spectral_bandwidth",
		"spectral_rolloff",
		"spectral_slope",
		"dominant_frequency",
		"stft_frames",
		"stft_centroid_mean",
		"stft_centroid_std",
		"stft_flux_mean",
		"stft_flux_max",
	}

	for i := range mfccCount {
		names = append(names, fmt.Sprintf("mfcc_mean_%02d", i))
	}

	for i := range mfccCount {
		names = append(names, fmt.Sprintf("mfcc_std_%02d", i))
	}

	names = append(names,
		"cwt_dominant_frequency",
		"cwt_scale_entropy",
		"cwt_temporal_centroid",
		"envelope_kurtosis",
		"envelope_skewness",
	)

	for _, band := range energyBands {
		names = append(names, band.name)
	}

	return names
}

// Names returns the column order of the vectors this extractor produces.
func (e *Extractor) Names() []string {
	return e.names
}

// Extract computes the feature vector of one event over the samples of the whole buffer.
// Any non-finite feature makes the whole vector a numeric anomaly.
func (e *Extractor) Extract(samples []float64, event types.Event) (types.FeatureVector, error) {
	rate := float64(e.settings.SampleRate)

	start := max(0, int(math.Round(event.StartTime*rate)))
	end := min(len(samples), int(math.Round(event.EndTime*rate)))

	if end-start < 2 { //nolint:mnd // a crossing needs two samples
		return types.FeatureVector{}, fmt.Errorf(
			"%w: event %d spans %d samples",
			types.ErrNumericAnomaly,
			event.ID,
			max(0, end-start),
		)
	}

	slice := samples[start:end]
	padStart := max(0, start-e.settings.PadSamples)
	padded := samples[padStart:min(len(samples), end+e.settings.PadSamples)]

	envelope := movingRMS(slice, int(math.Round(envelopeMs*rate/1000))) //nolint:mnd // ms
	spec := computeSpectrum(slice, e.settings.SampleRate)

	td := computeTime(slice, envelope, e.settings.SampleRate)
	fd := computeFrequency(spec, e.settings.RolloffPercent)
	st := computeSTFT(padded, e.window, e.settings.STFTHop, e.settings.SampleRate)
	cepstrum := mfcc(st.power, e.bank, e.dct)
	wt := computeCWT(padded, e.settings.Wavelet, e.centres, e.settings.SampleRate, start-padStart)
	sf := computeStatistical(envelope, spec)

	values := make([]float64, 0, len(e.names))
	values = append(values,
		td.duration, td.peak, td.rms, td.crest, td.zcr, td.attack, td.decay,
		fd.centroid, fd.bandwidth, fd.rolloff, fd.slope, fd.dominant,
		float64(st.frames), st.centroidMean, st.centroidStd, st.fluxMean, st.fluxMax,
	)

	stds := make([]float64, e.settings.MFCCCount)
	column := make([]float64, st.frames)

	for k := range e.settings.MFCCCount {
		mat.Col(column, k, cepstrum)

		var mean float64
		mean, stds[k] = stat.PopMeanStdDev(column, nil)
		values = append(values, mean)
	}

	values = append(values, stds...)
	values = append(values, wt.dominant, wt.entropy, wt.temporalCentroid, sf.kurtosis, sf.skewness)
	values = append(values, sf.bands...)

	vector := types.FeatureVector{
		EventID: event.ID,
		Names:   e.names,
		Values:  make(map[string]float64, len(e.names)),
	}

	for i, name := range e.names {
		if !dsp.Finite(values[i]) {
			return types.FeatureVector{}, fmt.Errorf(
				"%w: event %d: %s is %v",
				types.ErrNumericAnomaly,
				event.ID,
				name,
				values[i],
			)
		}

		vector.Values[name] = values[i]
	}

	return vector, nil
}

// Outcome is the extraction result for the event at the same index.
type Outcome struct {
	Vector types.FeatureVector
	Err    error
}

// ExtractAll runs one task per event on a bounded pool. Each task writes only its own slot, so the
// outcome order matches the event order whatever the scheduling. The returned error is only set
// when ctx is done; per event failures are reported in the outcomes.
func (e *Extractor) ExtractAll(
	ctx context.Context,
	buffer *types.AudioBuffer,
	events []types.Event,
) ([]Outcome, error) {
	outcomes := make([]Outcome, len(events))

	workers := e.settings.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, event := range events {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			vector, err := e.Extract(buffer.Samples, event)
			outcomes[i] = Outcome{Vector: vector, Err: err}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("extracting features: %w", err)
	}

	return outcomes, nil
}
