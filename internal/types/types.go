//nolint:staticcheck // too dumb on Db vs. DB
package types

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat describes raw interleaved little-endian PCM as produced by extraction.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}

// AudioBuffer holds normalized samples in [-1, 1].
// A buffer is never mutated once handed to the pipeline: preprocessing returns a new one.
type AudioBuffer struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Len returns the number of samples.
func (b *AudioBuffer) Len() int {
	return len(b.Samples)
}

// Duration returns the buffer duration in seconds.
func (b *AudioBuffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}

	return float64(len(b.Samples)) / float64(b.SampleRate)
}

/*
Frame Energy Interpretation

EnergyDB is 10*log10(mean(x^2) + 1e-12) over the frame, so a digital silence frame reads -120 dB
and a full scale sine reads about -3 dB.

| EnergyDB      | Interpretation                               |
|---------------|----------------------------------------------|
| < -60 dB      | Silence, or the recorder noise floor.        |
| -60 to -40 dB | Wind, rain, distant traffic.                 |
| -40 to -25 dB | Distant rumble. Usually below detection.     |
| -25 to -10 dB | Rumble and rolling thunder.                  |
| > -10 dB      | Close strike. Check the recording for clips. |

SpectralFlux is the half-wave rectified L2 distance between consecutive magnitude spectra divided
by the larger of the two spectrum norms. It lives in [0, 1].

| SpectralFlux | Interpretation                                       |
|--------------|------------------------------------------------------|
| < 0.05       | Stationary sound, or a decaying tail.                |
| 0.05 to 0.2  | Evolving texture (rumble, rolling).                  |
| > 0.2        | Onset, crack or clap. New energy entering the frame. |
*/

// Frame is one analysis window. Samples is a read-only view into the buffer, except for a
// zero-padded tail frame which owns its own copy.
type Frame struct {
	Index   int
	Start   int // offset of the first sample
	Length  int // number of real (non padding) samples
	Time    float64
	EndTime float64
	Samples []float64

	EnergyDB     float64
	SpectralFlux float64
}

// Candidate is a detector boundary pair, consumed by the merger.
type Candidate struct {
	StartFrame   int
	EndFrame     int // last active frame
	StartTime    float64
	EndTime      float64
	PeakEnergyDB float64
	MeanFlux     float64
	Energy       float64 // summed linear frame energy
	Frames       int
}

// Duration in seconds.
func (c Candidate) Duration() float64 {
	return c.EndTime - c.StartTime
}

// Event is a merged, filtered thunder event.
type Event struct {
	ID           int
	StartTime    float64
	EndTime      float64
	PeakEnergyDB float64
	MeanFlux     float64
	StartFrame   int
	EndFrame     int
}

// Duration in seconds.
func (e Event) Duration() float64 {
	return e.EndTime - e.StartTime
}

/*
Feature Interpretation

Thunder is broadband and low frequency heavy. A few rules of thumb for the feature table:

| Feature                       | Close strike      | Distant rumble     |
|-------------------------------|-------------------|--------------------|
| crest_factor                  | > 6               | 2 to 4             |
| attack_time                   | < 50 ms           | > 200 ms           |
| spectral_centroid             | 300 to 1500 Hz    | < 200 Hz           |
| band_energy_20_100            | < 0.4             | > 0.6              |
| band_energy_500_6000          | > 0.2             | < 0.05             |
| cwt_scale_entropy             | high (broadband)  | low (narrow)       |

High frequencies are absorbed faster by air than low frequencies, so the centroid and the high
band fraction drop with distance. Combine with the distance estimate rather than reading either
on its own.
*/

// FeatureVector maps feature names to values for one event. Names follows the column order of
// the features table.
type FeatureVector struct {
	EventID int
	Names   []string
	Values  map[string]float64
}

// DistanceClass buckets a distance estimate.
type DistanceClass string

const (
	DistanceVeryClose DistanceClass = "very_close" // < 1 km
	DistanceClose     DistanceClass = "close"      // < 5 km
	DistanceModerate  DistanceClass = "moderate"   // < 15 km
	DistanceDistant   DistanceClass = "distant"
)

// DistanceEstimate is the flash-to-thunder distance for one event.
type DistanceEstimate struct {
	EventID        int
	DeltaT         float64 // seconds between flash and thunder onset
	ReferenceTempC float64
	SpeedOfSound   float64 // m/s
	DistanceM      float64
	LowerM         float64
	UpperM         float64
	Class          DistanceClass
}

// Stage names a pipeline stage, for anomaly reports and timings.
type Stage string

const (
	StageInput      Stage = "input"
	StagePreprocess Stage = "preprocess"
	StageDetect     Stage = "detect"
	StageMerge      Stage = "merge"
	StageFeatures   Stage = "features"
	StageDistance   Stage = "distance"
)

// Anomaly records an item skipped during a run. Frame is -1 when not frame related, EventID is 0
// when not event related.
type Anomaly struct {
	Stage   Stage
	Frame   int
	EventID int
	Reason  string
}
