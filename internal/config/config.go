package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leandrodaf/midiseq/internal/control"
	"github.com/leandrodaf/midiseq/internal/engine"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables that override the file.
const (
	EnvOutput     = "GORD_MIDI_DEST"
	EnvInput      = "GORD_MIDI_SRC"
	EnvSocket     = "MIDISEQ_SOCKET"
	EnvMQTTBroker = "MIDISEQ_MQTT_BROKER"
	EnvLogLevel   = "MIDISEQ_LOG_LEVEL"
)

// Config represents the complete daemon configuration
type Config struct {
	Output     string        `yaml:"output"`      // destination name substring
	Input      string        `yaml:"input"`       // clock source name substring, optional
	ClientName string        `yaml:"client_name"` // CoreMIDI client name
	Control    ControlConfig `yaml:"control"`
	Log        LogConfig     `yaml:"log"`
	Timing     TimingConfig  `yaml:"timing"`
}

// ControlConfig contains the control transports
type ControlConfig struct {
	Socket string     `yaml:"socket"`
	MQTT   MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig contains MQTT broker settings; an empty broker disables MQTT
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	ClientID string `yaml:"client_id"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // empty logs to stderr
}

// TimingConfig contains the scheduling constants in milliseconds
type TimingConfig struct {
	LookaheadMS    float64 `yaml:"lookahead_ms"`
	LeadMS         float64 `yaml:"lead_ms"`
	PollMS         float64 `yaml:"poll_ms"`
	IdlePollMS     float64 `yaml:"idle_poll_ms"`
	DebounceMS     float64 `yaml:"debounce_ms"`
	SafetyMS       float64 `yaml:"safety_ms"`
	FallbackGateMS float64 `yaml:"fallback_gate_ms"`
}

func toMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMS(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Default returns the built-in configuration.
func Default() *Config {
	t := engine.DefaultTimings()
	return &Config{
		ClientName: "midiseq",
		Control: ControlConfig{
			Socket: control.DefaultSocketPath,
			MQTT:   MQTTConfig{Topic: control.DefaultTopic},
		},
		Log: LogConfig{Level: "info"},
		Timing: TimingConfig{
			LookaheadMS:    toMS(t.Lookahead),
			LeadMS:         toMS(t.Lead),
			PollMS:         toMS(t.Poll),
			IdlePollMS:     toMS(t.IdlePoll),
			DebounceMS:     toMS(t.Debounce),
			SafetyMS:       toMS(t.Safety),
			FallbackGateMS: toMS(t.FallbackGate),
		},
	}
}

// Load reads path over the defaults (when path is set), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that override fields first.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvOutput); ok {
		c.Output = v
	}
	if v, ok := lookup(EnvInput); ok {
		c.Input = v
	}
	if v, ok := lookup(EnvSocket); ok {
		c.Control.Socket = v
	}
	if v, ok := lookup(EnvMQTTBroker); ok {
		c.Control.MQTT.Broker = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
}

// Timings converts the timing section.
func (c *Config) Timings() contracts.Timings {
	return contracts.Timings{
		Lookahead:    fromMS(c.Timing.LookaheadMS),
		Lead:         fromMS(c.Timing.LeadMS),
		Poll:         fromMS(c.Timing.PollMS),
		IdlePoll:     fromMS(c.Timing.IdlePollMS),
		Debounce:     fromMS(c.Timing.DebounceMS),
		Safety:       fromMS(c.Timing.SafetyMS),
		FallbackGate: fromMS(c.Timing.FallbackGateMS),
	}
}

// Options translates the configuration into sequencer options.
func (c *Config) Options() ([]contracts.Option, error) {
	level, err := contracts.ParseLogLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	opts := []contracts.Option{
		contracts.WithOutput(c.Output),
		contracts.WithInput(c.Input),
		contracts.WithControlSocket(c.Control.Socket),
		contracts.WithLogLevel(level),
		contracts.WithTimings(c.Timings()),
	}
	if c.ClientName != "" {
		opts = append(opts, contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: c.ClientName}))
	}
	if c.Log.File != "" {
		opts = append(opts, contracts.WithLogFile(c.Log.File))
	}
	if c.Control.MQTT.Broker != "" {
		opts = append(opts, contracts.WithMQTT(contracts.MQTTConfig{
			Broker:   c.Control.MQTT.Broker,
			Topic:    c.Control.MQTT.Topic,
			QoS:      c.Control.MQTT.QoS,
			ClientID: c.Control.MQTT.ClientID,
		}))
	}
	return opts, nil
}
