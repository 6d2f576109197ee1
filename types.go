package brontes

import (
	"github.com/farcloser/brontes/internal/types"
)

type (
	AudioBuffer      = types.AudioBuffer
	Event            = types.Event
	FeatureVector    = types.FeatureVector
	DistanceEstimate = types.DistanceEstimate
	DistanceClass    = types.DistanceClass
	Anomaly          = types.Anomaly
	Stage            = types.Stage
)

var (
	ErrConfig         = types.ErrConfig
	ErrInput          = types.ErrInput
	ErrNumericAnomaly = types.ErrNumericAnomaly
	ErrInvalidInput   = types.ErrInvalidInput
)

// NewAudioBuffer wraps mono samples. The slice is not copied and must not be modified afterwards.
func NewAudioBuffer(samples []float64, sampleRate int) *AudioBuffer {
	return &AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

// Input carries optional flash timing for distance estimation.
type Input struct {
	// Flashes are flash timestamps in seconds, on the time base of the audio.
	// Each event is aligned to the closest flash strictly before its start.
	Flashes []float64
	// Delays are explicit flash to thunder delays in seconds, by event id. They take precedence over Flashes.
	Delays map[int]float64
}

// Report counts everything a run skipped or dropped, so that nothing disappears silently.
type Report struct {
	Frames          int // frames analyzed
	FramesSkipped   int // numeric anomalies in the analyzer
	Candidates      int // detector boundaries before merging
	Merged          int // candidates after merging
	DroppedShort    int // merged candidates shorter than the minimum duration
	FeatureFailures int // events without a feature vector
	DistanceSkipped int // events with an invalid delay
	Anomalies       []Anomaly
	Timings         []StageTiming
}

// StageTiming is the wall time spent in a stage.
type StageTiming struct {
	Stage   Stage
	Seconds float64
}

// Result is the output of one run. Features and Distances are ordered by event id; an event may be
// missing from either.
type Result struct {
	SampleRate   int
	Duration     float64 // seconds
	Events       []Event
	FeatureNames []string
	Features     []FeatureVector
	Distances    []DistanceEstimate
	Report       Report
}

// Distance returns the estimate for an event. The boolean is false when the event has none, which is
// distinct from a zero distance.
func (r *Result) Distance(eventID int) (DistanceEstimate, bool) {
	for _, d := range r.Distances {
		if d.EventID == eventID {
			return d, true
		}
	}

	return DistanceEstimate{}, false
}

// FeatureVector returns the feature vector of an event, if it has one.
func (r *Result) FeatureVector(eventID int) (FeatureVector, bool) {
	for _, f := range r.Features {
		if f.EventID == eventID {
			return f, true
		}
	}

	return FeatureVector{}, false
}
