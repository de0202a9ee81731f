// ABOUTME: Configuration schema for the voicetutor client
// ABOUTME: Defines the YAML shape and defaults for a tutoring call
package config

import (
	"time"

	"github.com/bactutor/voicetutor-go/pkg/live"
)

// APIKeyEnv is consulted when service.api_key is not set in the file.
const APIKeyEnv = "GEMINI_API_KEY"

// DefaultPersona is the system instruction used when the config does not
// override it.
const DefaultPersona = "You are a patient, encouraging tutor helping an Algerian " +
	"student prepare for the baccalaureate exam. Keep explanations short and " +
	"spoken-word friendly, and check understanding before moving on."

// Config is the root of the YAML configuration file.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Audio     AudioConfig     `yaml:"audio"`
	Recording RecordingConfig `yaml:"recording"`

	// LogFile receives the client log. The TUI owns the terminal, so
	// logs never go to stdout while it is running.
	LogFile string `yaml:"log_file"`
}

// ServiceConfig selects the live voice service and the tutor persona.
type ServiceConfig struct {
	// APIKey authenticates against the service. Falls back to the
	// GEMINI_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`

	// Model is the voice model resource name.
	Model string `yaml:"model"`

	// Voice selects the prebuilt synthesis voice.
	Voice string `yaml:"voice"`

	// Persona is the system instruction sent at session setup.
	Persona string `yaml:"persona"`

	// Endpoint overrides the service URL. Normally left empty.
	Endpoint string `yaml:"endpoint"`

	// ConnectTimeoutSeconds bounds dial plus setup handshake.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
}

// AudioConfig holds capture and playback knobs.
type AudioConfig struct {
	// SyntheticMic replaces the microphone with a generated tone.
	// Useful on machines without capture hardware.
	SyntheticMic bool `yaml:"synthetic_mic"`

	// OutputBackend selects the playback backend: "malgo" or "oto".
	OutputBackend string `yaml:"output_backend"`
}

// RecordingConfig controls per-session WAV recording of both call legs.
type RecordingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Dir is where recordings are written. Defaults to "recordings".
	Dir string `yaml:"dir"`
}

// Default returns a config with every field at its default value.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Model:                 "models/gemini-2.0-flash-exp",
			Voice:                 "Aoede",
			Persona:               DefaultPersona,
			ConnectTimeoutSeconds: int(live.DefaultConnectTimeout / time.Second),
		},
		Audio: AudioConfig{
			OutputBackend: "malgo",
		},
		Recording: RecordingConfig{
			Dir: "recordings",
		},
		LogFile: "voicetutor.log",
	}
}

// Live translates the service section into transport parameters.
func (c *Config) Live() live.Config {
	return live.Config{
		APIKey:            c.Service.APIKey,
		Model:             c.Service.Model,
		Voice:             c.Service.Voice,
		SystemInstruction: c.Service.Persona,
		Endpoint:          c.Service.Endpoint,
		ConnectTimeout:    time.Duration(c.Service.ConnectTimeoutSeconds) * time.Second,
	}
}
