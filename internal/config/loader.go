// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	hwOK := true
	if err := cfg.Hardware.Check(); err != nil {
		hwOK = false
		errs = append(errs, fmt.Errorf("hardware: %w", err))
	}

	s := cfg.Stream
	if hwOK {
		if err := cfg.Hardware.Validate(s.Params()); err != nil {
			errs = append(errs, fmt.Errorf("stream: %w", err))
		}
		if s.InFlight != 0 && (s.InFlight < cfg.Hardware.PeriodsMin || s.InFlight > cfg.Hardware.PeriodsMax) {
			errs = append(errs, fmt.Errorf("stream.in_flight %d is out of range [%d, %d]",
				s.InFlight, cfg.Hardware.PeriodsMin, cfg.Hardware.PeriodsMax))
		}
	}
	if s.Endpoint == 0 {
		errs = append(errs, errors.New("stream.endpoint is required"))
	}

	sim := cfg.Sim
	if sim.Channels < 0 {
		errs = append(errs, fmt.Errorf("sim.channels %d must not be negative", sim.Channels))
	}
	if sim.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("sim.queue_depth %d must not be negative", sim.QueueDepth))
	}
	if sim.Speed < 0 {
		errs = append(errs, fmt.Errorf("sim.speed %.2f must not be negative", sim.Speed))
	}
	if sim.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("sim.memory_limit %d must not be negative", sim.MemoryLimit))
	} else if sim.MemoryLimit > 0 && sim.MemoryLimit < s.BufferBytes {
		errs = append(errs, fmt.Errorf("sim.memory_limit %d is smaller than stream.buffer_bytes %d",
			sim.MemoryLimit, s.BufferBytes))
	}
	if sim.QueueDepth > 0 && s.InFlight > sim.QueueDepth {
		errs = append(errs, fmt.Errorf("stream.in_flight %d exceeds sim.queue_depth %d", s.InFlight, sim.QueueDepth))
	}

	return errors.Join(errs...)
}
