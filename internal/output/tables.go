package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/farcloser/brontes"
)

// Table file names inside an output directory.
const (
	EventsFile    = "events.csv"
	FeaturesFile  = "features.csv"
	DistancesFile = "distances.csv"
)

var (
	eventsHeader = []string{
		"event_id", "start_time_s", "end_time_s", "peak_energy_db", "mean_spectral_flux",
	}
	distancesHeader = []string{
		"event_id", "delta_t_s", "reference_temp_c", "speed_of_sound_m_s",
		"distance_m", "distance_lower_m", "distance_upper_m", "class",
	}
)

// float uses the shortest representation that round-trips, so reruns are byte identical.
func float(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteEvents writes the events table.
func WriteEvents(w io.Writer, events []brontes.Event) error {
	rows := make([][]string, 0, len(events)+1)
	rows = append(rows, eventsHeader)

	for _, event := range events {
		rows = append(rows, []string{
			strconv.Itoa(event.ID),
			float(event.StartTime),
			float(event.EndTime),
			float(event.PeakEnergyDB),
			float(event.MeanFlux),
		})
	}

	return csv.NewWriter(w).WriteAll(rows)
}

// WriteFeatures writes the features table: one row per vector, columns in names order.
func WriteFeatures(w io.Writer, names []string, vectors []brontes.FeatureVector) error {
	rows := make([][]string, 0, len(vectors)+1)
	rows = append(rows, append([]string{"event_id"}, names...))

	for _, vector := range vectors {
		row := make([]string, 0, len(names)+1)
		row = append(row, strconv.Itoa(vector.EventID))

		for _, name := range names {
			value, ok := vector.Values[name]
			if !ok {
				return fmt.Errorf("event %d: missing feature %s", vector.EventID, name)
			}

			row = append(row, float(value))
		}

		rows = append(rows, row)
	}

	return csv.NewWriter(w).WriteAll(rows)
}

// WriteDistances writes the distance table. Events without an estimate have no row.
func WriteDistances(w io.Writer, distances []brontes.DistanceEstimate) error {
	rows := make([][]string, 0, len(distances)+1)
	rows = append(rows, distancesHeader)

	for _, d := range distances {
		rows = append(rows, []string{
			strconv.Itoa(d.EventID),
			float(d.DeltaT),
			float(d.ReferenceTempC),
			float(d.SpeedOfSound),
			float(d.DistanceM),
			float(d.LowerM),
			float(d.UpperM),
			string(d.Class),
		})
	}

	return csv.NewWriter(w).WriteAll(rows)
}

type table struct {
	file  string
	write func(io.Writer) error
}

// WriteTables writes the tables into dir, creating it if needed, and returns their paths.
// The distance table is only written when withDistances is set, meta.json only when meta is not nil.
func WriteTables(dir string, result *brontes.Result, meta *Meta, withDistances bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec,mnd // user output directory
		return nil, err
	}

	tables := []table{
		{EventsFile, func(w io.Writer) error { return WriteEvents(w, result.Events) }},
		{FeaturesFile, func(w io.Writer) error { return WriteFeatures(w, result.FeatureNames, result.Features) }},
	}

	if withDistances {
		tables = append(tables, table{DistancesFile, func(w io.Writer) error { return WriteDistances(w, result.Distances) }})
	}

	if meta != nil {
		tables = append(tables, table{MetaFile, func(w io.Writer) error { return WriteMeta(w, meta) }})
	}

	paths := make([]string, 0, len(tables))

	for _, table := range tables {
		path := filepath.Join(dir, table.file)
		if err := writeFile(path, table.write); err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path) //nolint:gosec // path inside the user output directory
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()

	if err = write(file); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
