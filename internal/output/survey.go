//nolint:tagliatelle
package output

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const maxLineSize = 4 * 1024 * 1024 // a long recording has a lot of events

// Record is a single line in the JSONL survey report.
type Record struct {
	File     string         `json:"file,omitempty"`
	Analysis map[string]any `json:"analysis,omitempty"`
	Flashes  int            `json:"flashes,omitempty"`
	Error    string         `json:"error,omitempty"`
	Timing   *RecordTiming  `json:"timing,omitempty"`
}

// RecordTiming captures per-file processing durations in milliseconds.
type RecordTiming struct {
	LoadMs  float64 `json:"load_ms"`
	RunMs   float64 `json:"run_ms"`
	TotalMs float64 `json:"total_ms"`
}

// WriteRecords writes one JSON document per line.
func WriteRecords(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)

	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	return nil
}

// SurveyRecord is the typed view of a Record the digest reads back.
type SurveyRecord struct {
	File     string          `json:"file,omitempty"`
	Analysis *SurveyAnalysis `json:"analysis,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// SurveyAnalysis mirrors the parts of ResultToMap the digest uses.
type SurveyAnalysis struct {
	Summary struct {
		Duration   float64  `json:"duration_s"`
		EventCount int      `json:"event_count"`
		ClosestM   *float64 `json:"closest_m"`
	} `json:"summary"`
	Events []SurveyEvent `json:"events"`
}

// SurveyEvent is one event of a survey record.
type SurveyEvent struct {
	ID        int     `json:"id"`
	StartTime float64 `json:"start_time_s"`
	Duration  float64 `json:"duration_s"`
	PeakDB    float64 `json:"peak_energy_db"`
	Distance  *struct {
		Meters float64 `json:"distance_m"`
		Class  string  `json:"class"`
	} `json:"distance,omitempty"`
}

// ReadRecords reads a JSONL survey report. Lines that do not parse become records with an error,
// so that record counts stay aligned with the file.
func ReadRecords(r io.Reader) ([]SurveyRecord, error) {
	var records []SurveyRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize) //nolint:mnd // initial buffer

	for scanner.Scan() {
		var record SurveyRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			records = append(records, SurveyRecord{Error: "parse error"})

			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	return records, nil
}

// Compress writes a gzip copy of path next to it, as path.gz.
func Compress(path string) error {
	src, err := os.Open(path) //nolint:gosec // our own output file
	if err != nil {
		return err
	}
	defer src.Close()

	gzFile, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer gzFile.Close()

	gzWriter := gzip.NewWriter(gzFile)

	if _, err = io.Copy(gzWriter, src); err != nil {
		return err
	}

	return gzWriter.Close()
}
