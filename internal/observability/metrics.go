// Package observability exposes run metrics in the Prometheus format.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farcloser/brontes"
)

const namespace = "brontes"

// Metrics holds the Prometheus counters and histograms of pipeline runs.
type Metrics struct {
	Runs         prometheus.Counter
	RunFailures  prometheus.Counter
	AudioSeconds prometheus.Counter

	Events          prometheus.Counter
	Candidates      prometheus.Counter
	DroppedShort    prometheus.Counter
	FramesSkipped   prometheus.Counter
	FeatureFailures prometheus.Counter
	DistanceSkipped prometheus.Counter

	EventDuration prometheus.Histogram
	Distance      *prometheus.HistogramVec // labels: class={very_close,close,moderate,distant}
	StageDuration *prometheus.HistogramVec // labels: stage
}

// NewMetrics creates the run metrics and registers them with reg.
// Pass a fresh prometheus.NewRegistry() to keep tests and textfile output isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total pipeline runs started.",
		}),
		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Runs aborted by a configuration, input or I/O error.",
		}),
		AudioSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Seconds of audio processed.",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Thunder events reported after merging and filtering.",
		}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Detector candidates before merging.",
		}),
		DroppedShort: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_short_total",
			Help:      "Merged candidates dropped for being shorter than the minimum duration.",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames skipped on a numeric anomaly.",
		}),
		FeatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feature_failures_total",
			Help:      "Events left without a feature vector.",
		}),
		DistanceSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_skipped_total",
			Help:      "Events with an invalid flash to thunder delay.",
		}),
		EventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Duration of reported thunder events.",
			Buckets:   []float64{0.15, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		Distance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "distance_meters",
			Help:      "Estimated strike distances by class.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 15000, 25000},
		}, []string{"class"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.Runs,
		m.RunFailures,
		m.AudioSeconds,
		m.Events,
		m.Candidates,
		m.DroppedShort,
		m.FramesSkipped,
		m.FeatureFailures,
		m.DistanceSkipped,
		m.EventDuration,
		m.Distance,
		m.StageDuration,
	)

	return m
}

// Observe records a finished run. A nil result counts as a failed run.
func (m *Metrics) Observe(result *brontes.Result) {
	m.Runs.Inc()

	if result == nil {
		m.RunFailures.Inc()

		return
	}

	report := result.Report

	m.AudioSeconds.Add(result.Duration)
	m.Events.Add(float64(len(result.Events)))
	m.Candidates.Add(float64(report.Candidates))
	m.DroppedShort.Add(float64(report.DroppedShort))
	m.FramesSkipped.Add(float64(report.FramesSkipped))
	m.FeatureFailures.Add(float64(report.FeatureFailures))
	m.DistanceSkipped.Add(float64(report.DistanceSkipped))

	for _, event := range result.Events {
		m.EventDuration.Observe(event.Duration())
	}

	for _, d := range result.Distances {
		m.Distance.WithLabelValues(string(d.Class)).Observe(d.DistanceM)
	}

	for _, timing := range report.Timings {
		m.StageDuration.WithLabelValues(string(timing.Stage)).Observe(timing.Seconds)
	}
}
