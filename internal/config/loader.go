// ABOUTME: YAML loader and validation for the voicetutor config
// ABOUTME: Strict-field decoding with joined validation errors
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Fields not present in the file keep their defaults, and the
// API key falls back to the GEMINI_API_KEY environment variable.
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

// LoadOrDefault loads the file at path, or returns the validated defaults
// (with env fallback applied) when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills credentials from the environment when the file left
// them empty.
func applyEnv(cfg *Config) {
	if cfg.Service.APIKey == "" {
		cfg.Service.APIKey = os.Getenv(APIKeyEnv)
	}
}

// Validate checks that cfg contains a coherent set of values. It returns
// a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Service.Model == "" {
		errs = append(errs, errors.New("service.model is required"))
	}
	if cfg.Service.ConnectTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("service.connect_timeout_seconds %d is negative", cfg.Service.ConnectTimeoutSeconds))
	}

	switch cfg.Audio.OutputBackend {
	case "", "malgo", "oto":
	default:
		errs = append(errs, fmt.Errorf("audio.output_backend %q is invalid; valid values: malgo, oto", cfg.Audio.OutputBackend))
	}

	if cfg.Recording.Enabled && cfg.Recording.Dir == "" {
		errs = append(errs, errors.New("recording.dir is required when recording is enabled"))
	}

	return errors.Join(errs...)
}
