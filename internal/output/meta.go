//nolint:tagliatelle
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"

	"github.com/farcloser/brontes"
	"github.com/farcloser/brontes/internal/config"
	"github.com/farcloser/brontes/version"
)

// MetaFile is the run description written next to the tables.
const MetaFile = "meta.json"

// Meta describes how a set of tables was produced. It carries no timestamp, so that rerunning the
// same input and configuration rewrites the same bytes.
type Meta struct {
	Source     string         `json:"source"`
	Version    string         `json:"version"`
	Commit     string         `json:"commit"`
	ConfigHash string         `json:"config_hash"`
	Config     map[string]any `json:"config"`
	EventCount int            `json:"event_count"`
	DurationS  float64        `json:"audio_duration_s"`
}

// NewMeta describes a run of cfg over source.
func NewMeta(source string, cfg brontes.Config, result *brontes.Result) (*Meta, error) {
	hash, err := config.Hash(cfg)
	if err != nil {
		return nil, err
	}

	values, err := config.Map(cfg)
	if err != nil {
		return nil, err
	}

	return &Meta{
		Source:     source,
		Version:    version.Version(),
		Commit:     version.Commit(),
		ConfigHash: hash,
		Config:     values,
		EventCount: len(result.Events),
		DurationS:  result.Duration,
	}, nil
}

// SameConfig reports whether both runs used the same configuration. A missing hash never matches.
func (m *Meta) SameConfig(other *Meta) bool {
	return m != nil && other != nil && m.ConfigHash != "" && m.ConfigHash == other.ConfigHash
}

// WriteMeta encodes meta as indented JSON.
func WriteMeta(w io.Writer, meta *Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(meta)
}

// ReadMeta loads a meta.json file.
func ReadMeta(path string) (*Meta, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-specified run directory
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrReadFailure, err)
	}

	var meta Meta
	if err = json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", fault.ErrInvalidJSON, path, err)
	}

	return &meta, nil
}
