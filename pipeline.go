// Package brontes detects thunder events in mono audio, extracts per event acoustic features and
// estimates strike distance from flash to thunder delays.
package brontes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/farcloser/brontes/internal/analyzer"
	"github.com/farcloser/brontes/internal/detector"
	"github.com/farcloser/brontes/internal/distance"
	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/features"
	"github.com/farcloser/brontes/internal/framing"
	"github.com/farcloser/brontes/internal/merge"
	"github.com/farcloser/brontes/internal/preprocess"
	"github.com/farcloser/brontes/internal/types"
)

/*
Usage:

cfg := brontes.DefaultConfig()
pipeline, err := brontes.New(cfg)

buffer := brontes.NewAudioBuffer(samples, 48000)
result, err := pipeline.Run(ctx, buffer, brontes.Input{Flashes: []float64{12.4, 40.1}})

for _, event := range result.Events {
    if d, ok := result.Distance(event.ID); ok {
        fmt.Printf("#%d at %.2fs: %.0f m (%s)\n", event.ID, event.StartTime, d.DistanceM, d.Class)
    }
}

*/

// Pipeline runs detection, feature extraction and distance estimation under one immutable
// configuration. A Pipeline is safe for concurrent use by multiple runs.
type Pipeline struct {
	config Config

	frameLen   int
	hop        int
	mergeGap   float64 // seconds
	minEvent   float64 // seconds
	thresholds detector.Thresholds
	preprocess preprocess.Options
	distance   distance.Options
	extractor  *features.Extractor
}

// New validates cfg and derives every sample based parameter once. Nothing can run on an invalid
// configuration.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	extractor, err := features.New(cfg.featureSettings())
	if err != nil {
		return nil, err
	}

	if !distance.Consistent(cfg.Distance.SpeedOfSound, cfg.Distance.ReferenceTemp) {
		slog.Warn("distance.speed_of_sound disagrees with the temperature model; the model is used",
			"configured", cfg.Distance.SpeedOfSound,
			"model", distance.SpeedOfSound(cfg.Distance.ReferenceTemp),
			"reference temp", cfg.Distance.ReferenceTemp,
		)
	}

	frameLen, hop := cfg.FrameSamples()

	return &Pipeline{
		config:   cfg,
		frameLen: frameLen,
		hop:      hop,
		mergeGap: cfg.Detect.MergeGapMs / 1000, //nolint:mnd // ms
		minEvent: cfg.Detect.MinEventMs / 1000, //nolint:mnd // ms
		thresholds: detector.Thresholds{
			EnergyDB: cfg.Detect.EnergyThreshDB,
			Flux:     cfg.Detect.SpectralChangeThresh,
		},
		preprocess: cfg.preprocessOptions(),
		distance:   cfg.distanceOptions(),
		extractor:  extractor,
	}, nil
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.config
}

// FeatureNames returns the features table column order.
func (p *Pipeline) FeatureNames() []string {
	return p.extractor.Names()
}

// Run processes one buffer. Configuration and input errors abort before any stage runs; numeric
// anomalies and invalid delays are skipped and counted in the report. The buffer is not modified.
func (p *Pipeline) Run(ctx context.Context, buffer *AudioBuffer, input Input) (*Result, error) {
	if err := p.checkInput(buffer); err != nil {
		return nil, err
	}

	report := Report{}
	timer := stageTimer{report: &report, last: time.Now()}

	slog.Debug("brontes.Run", "stage", "start", "samples", buffer.Len(), "sample rate", buffer.SampleRate)

	filtered, err := preprocess.Apply(buffer, p.preprocess)
	if err != nil {
		return nil, err
	}

	timer.done(types.StagePreprocess)

	candidates, err := p.detect(filtered, &report)
	if err != nil {
		return nil, err
	}

	timer.done(types.StageDetect)

	merged := merge.Merge(candidates, p.mergeGap)
	kept, dropped := merge.Filter(merged, p.minEvent)
	events := merge.Number(kept)
	report.Candidates = len(candidates)
	report.Merged = len(merged)
	report.DroppedShort = dropped

	slog.Debug("brontes.Run", "stage", "merge",
		"candidates", len(candidates), "merged", len(merged), "events", len(events))

	timer.done(types.StageMerge)

	result := &Result{
		SampleRate:   buffer.SampleRate,
		Duration:     buffer.Duration(),
		Events:       events,
		FeatureNames: p.extractor.Names(),
	}

	if err = p.extract(ctx, filtered, result, &report); err != nil {
		return nil, err
	}

	timer.done(types.StageFeatures)

	if p.config.Distance.EnableFlashAlignment {
		in := distance.Input{Flashes: input.Flashes, Delays: input.Delays}

		var anomalies []types.Anomaly

		result.Distances, anomalies = distance.EstimateAll(events, in, p.distance)
		report.DistanceSkipped = len(anomalies)
		p.record(&report, anomalies...)
	}

	timer.done(types.StageDistance)

	result.Report = report

	slog.Debug("brontes.Run", "stage", "done",
		"events", len(result.Events),
		"feature vectors", len(result.Features),
		"distances", len(result.Distances),
		"anomalies", len(report.Anomalies),
	)

	return result, nil
}

func (p *Pipeline) checkInput(buffer *AudioBuffer) error {
	switch {
	case buffer == nil || buffer.Len() == 0:
		return fmt.Errorf("%w: empty buffer", types.ErrInput)
	case buffer.Channels != 1:
		return fmt.Errorf("%w: %d channels, only mono is supported", types.ErrInput, buffer.Channels)
	case buffer.SampleRate != p.config.Audio.SampleRate:
		return fmt.Errorf(
			"%w: buffer sample rate %d does not match audio.sample_rate %d",
			types.ErrInput,
			buffer.SampleRate,
			p.config.Audio.SampleRate,
		)
	}

	for i, v := range buffer.Samples {
		if !dsp.Finite(v) {
			return fmt.Errorf("%w: sample %d is %v", types.ErrInput, i, v)
		}
	}

	return nil
}

// detect runs framing, analysis and the detector in a single streaming pass.
func (p *Pipeline) detect(buffer *AudioBuffer, report *Report) ([]types.Candidate, error) {
	segmenter, err := framing.New(buffer, p.frameLen, p.hop, p.config.Detect.PadLastFrame)
	if err != nil {
		return nil, err
	}

	frameAnalyzer := analyzer.New(p.frameLen)
	eventDetector := detector.New(p.thresholds)

	var candidates []types.Candidate

	for frame := range segmenter.Frames() {
		analyzed, err := frameAnalyzer.Analyze(frame)
		if err != nil {
			if !errors.Is(err, types.ErrNumericAnomaly) {
				return nil, err
			}

			report.FramesSkipped++
			p.record(report, types.Anomaly{Stage: types.StageDetect, Frame: frame.Index, Reason: err.Error()})

			continue
		}

		report.Frames++

		if candidate, ok := eventDetector.Step(analyzed); ok {
			candidates = append(candidates, candidate)
		}
	}

	if candidate, ok := eventDetector.Flush(); ok {
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

func (p *Pipeline) extract(ctx context.Context, buffer *AudioBuffer, result *Result, report *Report) error {
	outcomes, err := p.extractor.ExtractAll(ctx, buffer, result.Events)
	if err != nil {
		return err
	}

	for i, outcome := range outcomes {
		if outcome.Err != nil {
			report.FeatureFailures++
			p.record(report, types.Anomaly{
				Stage:   types.StageFeatures,
				Frame:   -1,
				EventID: result.Events[i].ID,
				Reason:  outcome.Err.Error(),
			})

			continue
		}

		result.Features = append(result.Features, outcome.Vector)
	}

	return nil
}

func (*Pipeline) record(report *Report, anomalies ...types.Anomaly) {
	for _, anomaly := range anomalies {
		slog.Warn("skipped", "stage", anomaly.Stage, "event", anomaly.EventID, "frame", anomaly.Frame, "reason", anomaly.Reason)
	}

	report.Anomalies = append(report.Anomalies, anomalies...)
}

type stageTimer struct {
	report *Report
	last   time.Time
}

func (t *stageTimer) done(stage types.Stage) {
	now := time.Now()
	t.report.Timings = append(t.report.Timings, StageTiming{Stage: stage, Seconds: now.Sub(t.last).Seconds()})
	t.last = now
}
