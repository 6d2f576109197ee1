// Package detector turns analyzed frames into candidate event boundaries.
package detector

import (
	"iter"
	"math"

	"github.com/farcloser/brontes/internal/types"
)

// State of the detector.
type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	}

	return "unknown"
}

// Thresholds controls entering and leaving the active state.
type Thresholds struct {
	EnergyDB float64
	Flux     float64
}

// Next is the transition function.
//
//	IDLE   -> ACTIVE when energy >= EnergyDB
//	ACTIVE -> IDLE   when energy < EnergyDB and flux < Flux
//
// Any other input keeps the current state.
func Next(state State, energyDB, flux float64, thresholds Thresholds) State {
	switch state {
	case StateIdle:
		if energyDB >= thresholds.EnergyDB {
			return StateActive
		}
	case StateActive:
		if energyDB < thresholds.EnergyDB && flux < thresholds.Flux {
			return StateIdle
		}
	}

	return state
}

// Detector is a streaming two state machine. Feed frames in order with Step, then call Flush once
// the input is exhausted.
type Detector struct {
	thresholds Thresholds
	state      State

	current types.Candidate
	fluxSum float64
	lastEnd float64 // end of the last active frame
}

// New returns a detector in the idle state.
func New(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// Step consumes one frame. It returns a candidate when this frame closes an active region.
// A candidate spans from the start of its first active frame to the start of its last one; the
// closing frame is not part of it.
func (d *Detector) Step(frame types.Frame) (types.Candidate, bool) {
	next := Next(d.state, frame.EnergyDB, frame.SpectralFlux, d.thresholds)

	switch {
	case d.state == StateIdle && next == StateActive:
		d.current = types.Candidate{
			StartFrame: frame.Index,
			StartTime:  frame.Time,
		}
		d.fluxSum = 0
		d.extend(frame)
	case d.state == StateActive && next == StateActive:
		d.extend(frame)
	case d.state == StateActive && next == StateIdle:
		d.state = next

		return d.emit(), true
	}

	d.state = next

	return types.Candidate{}, false
}

// Flush closes a region still active at the end of the input, using the end of the last frame.
func (d *Detector) Flush() (types.Candidate, bool) {
	if d.state != StateActive {
		return types.Candidate{}, false
	}

	d.state = StateIdle
	d.current.EndTime = d.lastEnd

	return d.emit(), true
}

func (d *Detector) extend(frame types.Frame) {
	c := &d.current

	if c.Frames == 0 || frame.EnergyDB > c.PeakEnergyDB {
		c.PeakEnergyDB = frame.EnergyDB
	}

	c.EndFrame = frame.Index
	c.EndTime = frame.Time
	d.lastEnd = frame.EndTime
	c.Energy += math.Pow(10, frame.EnergyDB/10) //nolint:mnd // dB to power
	c.Frames++
	d.fluxSum += frame.SpectralFlux
}

func (d *Detector) emit() types.Candidate {
	candidate := d.current
	candidate.MeanFlux = d.fluxSum / float64(candidate.Frames)

	d.current = types.Candidate{}
	d.fluxSum = 0

	return candidate
}

// Detect runs a fresh detector over a frame sequence.
func Detect(frames iter.Seq[types.Frame], thresholds Thresholds) []types.Candidate {
	var candidates []types.Candidate

	d := New(thresholds)

	for frame := range frames {
		if c, ok := d.Step(frame); ok {
			candidates = append(candidates, c)
		}
	}

	if c, ok := d.Flush(); ok {
		candidates = append(candidates, c)
	}

	return candidates
}
