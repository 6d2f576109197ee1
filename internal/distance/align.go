package distance

import "github.com/farcloser/brontes/internal/types"

// Input carries the flash information of a run. Timestamps share the time base of the audio.
type Input struct {
	Flashes []float64       // flash timestamps, seconds
	Delays  map[int]float64 // explicit delays by event id, used before Flashes
}

// Empty reports whether there is nothing to align against.
func (in Input) Empty() bool {
	return len(in.Flashes) == 0 && len(in.Delays) == 0
}

// DeltaT returns the delay of an event. An explicit delay wins; otherwise the closest flash strictly
// before the event start is used. The boolean is false when neither exists.
func (in Input) DeltaT(event types.Event) (float64, bool) {
	if d, ok := in.Delays[event.ID]; ok {
		return d, true
	}

	var (
		closest float64
		found   bool
	)

	for _, flash := range in.Flashes {
		if flash < event.StartTime && (!found || flash > closest) {
			closest = flash
			found = true
		}
	}

	if !found {
		return 0, false
	}

	return event.StartTime - closest, true
}

// EstimateAll estimates every event that has a delay. Events without one are absent from the
// result; events with an invalid delay are skipped and reported as anomalies.
func EstimateAll(events []types.Event, in Input, opts Options) ([]types.DistanceEstimate, []types.Anomaly) {
	var (
		estimates []types.DistanceEstimate
		anomalies []types.Anomaly
	)

	for _, event := range events {
		deltaT, ok := in.DeltaT(event)
		if !ok {
			continue
		}

		estimate, err := Estimate(event.ID, deltaT, opts)
		if err != nil {
			anomalies = append(anomalies, types.Anomaly{
				Stage:   types.StageDistance,
				Frame:   -1,
				EventID: event.ID,
				Reason:  err.Error(),
			})

			continue
		}

		estimates = append(estimates, estimate)
	}

	return estimates, anomalies
}
