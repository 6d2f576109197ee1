// Package distance estimates the range to a lightning strike from the flash to thunder delay.
package distance

import (
	"fmt"
	"math"

	"github.com/farcloser/brontes/internal/dsp"
	"github.com/farcloser/brontes/internal/types"
)

const (
	speedAtZero   = 331.5 // m/s at 0 °C
	speedPerDeg   = 0.6   // m/s per °C
	veryCloseM    = 1000.0
	closeM        = 5000.0
	moderateM     = 15000.0
	consistencyMS = 1.0 // tolerated gap between a configured speed and the temperature model
)

// SpeedOfSound returns the speed of sound in air at tempC degrees Celsius.
func SpeedOfSound(tempC float64) float64 {
	return speedAtZero + speedPerDeg*tempC
}

// Consistent reports whether a configured speed of sound agrees with the temperature model.
func Consistent(speed, tempC float64) bool {
	return math.Abs(speed-SpeedOfSound(tempC)) <= consistencyMS
}

// Options are the model parameters.
type Options struct {
	ReferenceTempC    float64
	DeltaTUncertainty float64 // seconds
	TempUncertainty   float64 // °C
}

// DefaultOptions returns a 20 °C model with ±0.1 s and ±5 °C uncertainty.
func DefaultOptions() Options {
	return Options{
		ReferenceTempC:    20,
		DeltaTUncertainty: 0.1,
		TempUncertainty:   5,
	}
}

// Estimate computes the distance for one event. A negative or non-finite delay is an ErrInvalidInput.
func Estimate(eventID int, deltaT float64, opts Options) (types.DistanceEstimate, error) {
	if !dsp.Finite(deltaT) || deltaT < 0 {
		return types.DistanceEstimate{}, fmt.Errorf(
			"%w: event %d: delta t %v s must be a non-negative number",
			types.ErrInvalidInput,
			eventID,
			deltaT,
		)
	}

	speed := SpeedOfSound(opts.ReferenceTempC)
	distance := speed * deltaT

	lower := SpeedOfSound(opts.ReferenceTempC-opts.TempUncertainty) * max(0, deltaT-opts.DeltaTUncertainty)
	upper := SpeedOfSound(opts.ReferenceTempC+opts.TempUncertainty) * (deltaT + opts.DeltaTUncertainty)

	return types.DistanceEstimate{
		EventID:        eventID,
		DeltaT:         deltaT,
		ReferenceTempC: opts.ReferenceTempC,
		SpeedOfSound:   speed,
		DistanceM:      distance,
		LowerM:         lower,
		UpperM:         upper,
		Class:          Classify(distance),
	}, nil
}

// Classify buckets a distance in meters.
func Classify(meters float64) types.DistanceClass {
	switch {
	case meters < veryCloseM:
		return types.DistanceVeryClose
	case meters < closeM:
		return types.DistanceClose
	case meters < moderateM:
		return types.DistanceModerate
	default:
		return types.DistanceDistant
	}
}
