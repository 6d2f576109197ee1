package brontes

import (
	"errors"
	"fmt"
	"slices"

	"github.com/farcloser/brontes/internal/distance"
	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/features"
	"github.com/farcloser/brontes/internal/framing"
	"github.com/farcloser/brontes/internal/preprocess"
	"github.com/farcloser/brontes/internal/types"
)

// AudioConfig describes the expected input and the band limiting applied before detection.
type AudioConfig struct {
	SampleRate        int     `yaml:"sample_rate"`
	BitDepth          int     `yaml:"bit_depth"`
	Channels          int     `yaml:"channels"`
	HighPassHz        float64 `yaml:"highpass_hz"` // 0 disables the high-pass
	LowPassHz         float64 `yaml:"lowpass_hz"`
	Normalize         bool    `yaml:"normalize"`
	NormalizeMethod   string  `yaml:"normalize_method"`
	NormalizeTargetDB float64 `yaml:"normalize_target_db"`
}

// DetectConfig controls framing, the detector thresholds and the merge/filter stage.
type DetectConfig struct {
	FrameLenMs           float64 `yaml:"frame_len_ms"`
	HopLenMs             float64 `yaml:"hop_len_ms"`
	EnergyThreshDB       float64 `yaml:"energy_thresh_db"`
	MergeGapMs           float64 `yaml:"merge_gap_ms"`
	MinEventMs           float64 `yaml:"min_event_ms"`
	SpectralChangeThresh float64 `yaml:"spectral_change_thresh"`
	PadLastFrame         bool    `yaml:"pad_last_frame"`
}

// FeaturesConfig controls the per event feature extractor.
type FeaturesConfig struct {
	STFTWinMs      float64 `yaml:"stft_win_ms"` // rounded to the nearest power of two samples
	STFTHopMs      float64 `yaml:"stft_hop_ms"`
	NMels          int     `yaml:"n_mels"`
	MFCCN          int     `yaml:"mfcc_n"`
	CWTWavelet     string  `yaml:"cwt_wavelet"`
	CWTScales      int     `yaml:"cwt_scales"`
	RolloffPercent float64 `yaml:"rolloff_percent"`
	PadMs          float64 `yaml:"pad_ms"`
	Workers        int     `yaml:"workers"` // 0 = number of CPUs
}

// DistanceConfig controls the flash to thunder distance model.
// SpeedOfSound is only checked against the temperature model: the estimate always uses 331.5 + 0.6 * T.
type DistanceConfig struct {
	EnableFlashAlignment bool    `yaml:"enable_flash_alignment"`
	SpeedOfSound         float64 `yaml:"speed_of_sound"`
	ReferenceTemp        float64 `yaml:"reference_temp"`
	DeltaTUncertainty    float64 `yaml:"delta_t_uncertainty"`
	TempUncertainty      float64 `yaml:"temp_uncertainty"`
}

// Config is the full pipeline configuration. Durations are milliseconds.
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Detect   DetectConfig   `yaml:"detect"`
	Features FeaturesConfig `yaml:"features"`
	Distance DistanceConfig `yaml:"distance"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate:        48000,
			BitDepth:          24,
			Channels:          1,
			HighPassHz:        20,
			LowPassHz:         6000,
			NormalizeMethod:   string(preprocess.MethodRMS),
			NormalizeTargetDB: -20,
		},
		Detect: DetectConfig{
			FrameLenMs:           20,
			HopLenMs:             10,
			EnergyThreshDB:       -25,
			MergeGapMs:           300,
			MinEventMs:           150,
			SpectralChangeThresh: 0.1,
		},
		Features: FeaturesConfig{
			STFTWinMs:      64,
			STFTHopMs:      16,
			NMels:          64,
			MFCCN:          13,
			CWTWavelet:     string(features.WaveletMorlet),
			CWTScales:      32,
			RolloffPercent: 0.85,
		},
		Distance: DistanceConfig{
			EnableFlashAlignment: true,
			SpeedOfSound:         343.5,
			ReferenceTemp:        20,
			DeltaTUncertainty:    0.1,
			TempUncertainty:      5,
		},
	}
}

const (
	minOverlap     = 0.25
	maxOverlap     = 0.95
	minThresholdDB = -100.0
	maxCWTScales   = 256
	minTempC       = -60.0
	maxTempC       = 60.0
)

// Validate checks the whole configuration and returns every failure joined, each wrapping ErrConfig.
func (c Config) Validate() error {
	var errs []error

	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{types.ErrConfig}, args...)...))
	}

	audio := c.Audio
	if audio.SampleRate <= 0 {
		fail("audio.sample_rate %d must be positive", audio.SampleRate)
	} else if float64(audio.SampleRate) <= 2*audio.LowPassHz {
		fail("audio.sample_rate %d must exceed twice audio.lowpass_hz %v", audio.SampleRate, audio.LowPassHz)
	}

	if !slices.Contains([]int{16, 24, 32}, audio.BitDepth) {
		fail("audio.bit_depth %d must be 16, 24 or 32", audio.BitDepth)
	}

	if audio.Channels != 1 {
		fail("audio.channels %d: only mono is supported", audio.Channels)
	}

	if audio.HighPassHz < 0 || audio.HighPassHz >= audio.LowPassHz {
		fail("audio.highpass_hz %v must be in [0, audio.lowpass_hz %v)", audio.HighPassHz, audio.LowPassHz)
	}

	if _, err := preprocess.ParseMethod(audio.NormalizeMethod); err != nil {
		errs = append(errs, fmt.Errorf("audio.normalize_method: %w", err))
	}

	detect := c.Detect
	if detect.HopLenMs <= 0 || detect.HopLenMs >= detect.FrameLenMs {
		fail("detect.hop_len_ms %v must be in (0, detect.frame_len_ms %v)", detect.HopLenMs, detect.FrameLenMs)
	} else if overlap := c.Overlap(); overlap < minOverlap || overlap > maxOverlap {
		fail("detect frame overlap %.0f%% must be within [25%%, 95%%]", overlap*100) //nolint:mnd // percent
	} else if frameLen, hop := c.FrameSamples(); audio.SampleRate > 0 && (hop <= 0 || hop >= frameLen) {
		fail("detect.hop_len_ms %v and detect.frame_len_ms %v give %d and %d samples at %d Hz, hop must be in (0, frame)",
			detect.HopLenMs, detect.FrameLenMs, hop, frameLen, audio.SampleRate)
	}

	if detect.EnergyThreshDB < minThresholdDB || detect.EnergyThreshDB > 0 {
		fail("detect.energy_thresh_db %v must be within [-100, 0]", detect.EnergyThreshDB)
	}

	if detect.SpectralChangeThresh < 0 || detect.SpectralChangeThresh > 1 {
		fail("detect.spectral_change_thresh %v must be within [0, 1]", detect.SpectralChangeThresh)
	}

	if detect.MergeGapMs < 0 || detect.MinEventMs < 0 {
		fail("detect.merge_gap_ms %v and detect.min_event_ms %v must not be negative", detect.MergeGapMs, detect.MinEventMs)
	}

	feat := c.Features
	if feat.STFTHopMs <= 0 || feat.STFTHopMs > feat.STFTWinMs {
		fail("features.stft_hop_ms %v must be in (0, features.stft_win_ms %v]", feat.STFTHopMs, feat.STFTWinMs)
	}

	if audio.SampleRate > 0 {
		if nfft := c.STFTWindow(); nfft < 16 {
			fail("features.stft_win_ms %v gives a %d sample window, at least 16 required", feat.STFTWinMs, nfft)
		} else if feat.NMels > nfft/2 {
			fail("features.n_mels %d exceeds the %d bins of the stft", feat.NMels, nfft/2+1)
		}
	}

	if feat.MFCCN < 1 || feat.MFCCN > feat.NMels {
		fail("features.mfcc_n %d must be within [1, features.n_mels %d]", feat.MFCCN, feat.NMels)
	}

	if _, err := features.ParseWavelet(feat.CWTWavelet); err != nil {
		errs = append(errs, fmt.Errorf("features.cwt_wavelet: %w", err))
	}

	if feat.CWTScales < 2 || feat.CWTScales > maxCWTScales {
		fail("features.cwt_scales %d must be within [2, %d]", feat.CWTScales, maxCWTScales)
	}

	if feat.RolloffPercent <= 0 || feat.RolloffPercent > 1 {
		fail("features.rolloff_percent %v must be within (0, 1]", feat.RolloffPercent)
	}

	if feat.PadMs < 0 || feat.Workers < 0 {
		fail("features.pad_ms %v and features.workers %d must not be negative", feat.PadMs, feat.Workers)
	}

	dist := c.Distance
	if dist.ReferenceTemp < minTempC || dist.ReferenceTemp > maxTempC {
		fail("distance.reference_temp %v must be within [-60, 60]", dist.ReferenceTemp)
	}

	if dist.SpeedOfSound <= 0 {
		fail("distance.speed_of_sound %v must be positive", dist.SpeedOfSound)
	}

	if dist.DeltaTUncertainty < 0 || dist.TempUncertainty < 0 {
		fail("distance uncertainties must not be negative")
	}

	return errors.Join(errs...)
}

// Overlap returns the detection frame overlap ratio.
func (c Config) Overlap() float64 {
	return (c.Detect.FrameLenMs - c.Detect.HopLenMs) / c.Detect.FrameLenMs
}

// FrameSamples returns the detection frame and hop lengths in samples.
func (c Config) FrameSamples() (frame, hop int) {
	return framing.SampleCount(c.Detect.FrameLenMs, c.Audio.SampleRate),
		framing.SampleCount(c.Detect.HopLenMs, c.Audio.SampleRate)
}

// STFTWindow returns the STFT window (and FFT) size: the power of two nearest to stft_win_ms.
func (c Config) STFTWindow() int {
	return dsp.NearestPowerOfTwo(framing.SampleCount(c.Features.STFTWinMs, c.Audio.SampleRate))
}

// FeatureNames returns the features table column order for this configuration.
func (c Config) FeatureNames() []string {
	return features.Names(c.Features.MFCCN)
}

func (c Config) featureSettings() features.Settings {
	return features.Settings{
		SampleRate:     c.Audio.SampleRate,
		RolloffPercent: c.Features.RolloffPercent,
		STFTWindow:     c.STFTWindow(),
		STFTHop:        framing.SampleCount(c.Features.STFTHopMs, c.Audio.SampleRate),
		NMels:          c.Features.NMels,
		MFCCCount:      c.Features.MFCCN,
		MelLow:         c.Audio.HighPassHz,
		MelHigh:        c.Audio.LowPassHz,
		Wavelet:        features.Wavelet(c.Features.CWTWavelet),
		Scales:         c.Features.CWTScales,
		PadSamples:     framing.SampleCount(c.Features.PadMs, c.Audio.SampleRate),
		Workers:        c.Features.Workers,
	}
}

func (c Config) preprocessOptions() preprocess.Options {
	return preprocess.Options{
		HighPassHz: c.Audio.HighPassHz,
		LowPassHz:  c.Audio.LowPassHz,
		Normalize:  c.Audio.Normalize,
		Method:     preprocess.Method(c.Audio.NormalizeMethod),
		TargetDB:   c.Audio.NormalizeTargetDB,
	}
}

func (c Config) distanceOptions() distance.Options {
	return distance.Options{
		ReferenceTempC:    c.Distance.ReferenceTemp,
		DeltaTUncertainty: c.Distance.DeltaTUncertainty,
		TempUncertainty:   c.Distance.TempUncertainty,
	}
}

// Computed lists the sample based values derived from a configuration.
type Computed struct {
	FrameSamples       int
	HopSamples         int
	FrameOverlap       float64
	STFTWindow         int
	STFTHop            int
	STFTOverlap        float64
	FrequencyStepHz    float64
	Nyquist            float64
	SpeedOfSoundModel  float64
	SpeedOfSoundAgrees bool
	FeatureCount       int
}

// Compute derives the sample based values of c. It assumes c is valid.
func (c Config) Compute() Computed {
	frame, hop := c.FrameSamples()
	window := c.STFTWindow()
	stftHop := framing.SampleCount(c.Features.STFTHopMs, c.Audio.SampleRate)

	return Computed{
		FrameSamples:       frame,
		HopSamples:         hop,
		FrameOverlap:       c.Overlap(),
		STFTWindow:         window,
		STFTHop:            stftHop,
		STFTOverlap:        float64(window-stftHop) / float64(window),
		FrequencyStepHz:    float64(c.Audio.SampleRate) / float64(window),
		Nyquist:            float64(c.Audio.SampleRate) / 2, //nolint:mnd // nyquist
		SpeedOfSoundModel:  distance.SpeedOfSound(c.Distance.ReferenceTemp),
		SpeedOfSoundAgrees: distance.Consistent(c.Distance.SpeedOfSound, c.Distance.ReferenceTemp),
		FeatureCount:       len(c.FeatureNames()),
	}
}
