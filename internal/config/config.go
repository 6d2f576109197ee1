// Package config loads a pipeline configuration from YAML.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/farcloser/primordium/fault"
	"gopkg.in/yaml.v3"

	"github.com/farcloser/brontes"
)

// Load reads the YAML file at path over the default configuration and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (brontes.Config, error) {
	if path == "" {
		cfg := brontes.DefaultConfig()

		return cfg, cfg.Validate()
	}

	file, err := os.Open(path) //nolint:gosec // user-specified config file
	if err != nil {
		return brontes.Config{}, fmt.Errorf("%w: config %q: %w", fault.ErrReadFailure, path, err)
	}
	defer file.Close()

	cfg, err := LoadFromReader(file)
	if err != nil {
		return brontes.Config{}, fmt.Errorf("config %q: %w", path, err)
	}

	return cfg, nil
}

// LoadFromReader decodes YAML from r. Keys left out keep their default value; unknown keys are
// rejected. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (brontes.Config, error) {
	cfg := brontes.DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return brontes.Config{}, fmt.Errorf("%w: decode yaml: %w", brontes.ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return brontes.Config{}, err
	}

	return cfg, nil
}

// Write encodes cfg as YAML.
func Write(w io.Writer, cfg brontes.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) //nolint:mnd // two spaces

	if err := enc.Encode(cfg); err != nil {
		return err
	}

	return enc.Close()
}

// Hash returns the sha256 of the YAML encoding of cfg, hex encoded. Two runs with the same hash
// used the same configuration.
func Hash(cfg brontes.Config) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, cfg); err != nil {
		return "", err
	}

	sum := sha256.Sum256(buf.Bytes())

	return hex.EncodeToString(sum[:]), nil
}

// Map returns cfg as nested maps keyed like the YAML file.
func Map(cfg brontes.Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err = yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
