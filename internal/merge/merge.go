// Package merge combines near-adjacent candidates into events and drops the short ones.
package merge

import (
	"cmp"
	"slices"

	"github.com/farcloser/brontes/internal/types"
)

// Merge sorts candidates by start time and combines any pair whose gap is strictly below gap
// seconds. It does not modify its input.
func Merge(candidates []types.Candidate, gap float64) []types.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b types.Candidate) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})

	merged := make([]types.Candidate, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		if next.StartTime-current.EndTime < gap {
			current = combine(current, next)

			continue
		}

		merged = append(merged, current)
		current = next
	}

	return append(merged, current)
}

// combine assumes a.StartTime <= b.StartTime. Flux is weighted by linear energy, or by frame count
// when both sides carry no energy.
func combine(a, b types.Candidate) types.Candidate {
	out := types.Candidate{
		StartFrame:   min(a.StartFrame, b.StartFrame),
		EndFrame:     max(a.EndFrame, b.EndFrame),
		StartTime:    min(a.StartTime, b.StartTime),
		EndTime:      max(a.EndTime, b.EndTime),
		PeakEnergyDB: max(a.PeakEnergyDB, b.PeakEnergyDB),
		Energy:       a.Energy + b.Energy,
		Frames:       a.Frames + b.Frames,
	}

	switch {
	case out.Energy > 0:
		out.MeanFlux = (a.MeanFlux*a.Energy + b.MeanFlux*b.Energy) / out.Energy
	case out.Frames > 0:
		out.MeanFlux = (a.MeanFlux*float64(a.Frames) + b.MeanFlux*float64(b.Frames)) / float64(out.Frames)
	default:
		out.MeanFlux = (a.MeanFlux + b.MeanFlux) / 2 //nolint:mnd // plain average
	}

	return out
}

// Filter keeps candidates lasting at least minDuration seconds and returns how many were dropped.
func Filter(candidates []types.Candidate, minDuration float64) ([]types.Candidate, int) {
	kept := make([]types.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c.Duration() >= minDuration {
			kept = append(kept, c)
		}
	}

	return kept, len(candidates) - len(kept)
}

// Events merges, filters and numbers candidates from 1. It also returns the number of merged
// candidates dropped as too short.
func Events(candidates []types.Candidate, gap, minDuration float64) ([]types.Event, int) {
	kept, dropped := Filter(Merge(candidates, gap), minDuration)

	return Number(kept), dropped
}

// Number turns merged, filtered candidates into events with ids from 1, in order.
func Number(candidates []types.Candidate) []types.Event {
	events := make([]types.Event, len(candidates))
	for i, c := range candidates {
		events[i] = types.Event{
			ID:           i + 1,
			StartTime:    c.StartTime,
			EndTime:      c.EndTime,
			PeakEnergyDB: c.PeakEnergyDB,
			MeanFlux:     c.MeanFlux,
			StartFrame:   c.StartFrame,
			EndFrame:     c.EndFrame,
		}
	}

	return events
}
