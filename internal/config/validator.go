package config

import (
	"fmt"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.Output == "" {
		return fmt.Errorf("%w: output is required (or set %s)", ErrInvalidConfig, EnvOutput)
	}

	if _, err := contracts.ParseLogLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err)
	}

	if cfg.Control.MQTT.QoS > 2 {
		return fmt.Errorf("%w: control.mqtt.qos must be 0, 1 or 2, got %d", ErrInvalidConfig, cfg.Control.MQTT.QoS)
	}

	timings := map[string]float64{
		"lookahead_ms":     cfg.Timing.LookaheadMS,
		"lead_ms":          cfg.Timing.LeadMS,
		"poll_ms":          cfg.Timing.PollMS,
		"idle_poll_ms":     cfg.Timing.IdlePollMS,
		"debounce_ms":      cfg.Timing.DebounceMS,
		"safety_ms":        cfg.Timing.SafetyMS,
		"fallback_gate_ms": cfg.Timing.FallbackGateMS,
	}
	for name, v := range timings {
		if v < 0 {
			return fmt.Errorf("%w: timing.%s must be >= 0, got %v", ErrInvalidConfig, name, v)
		}
	}
	if cfg.Timing.LookaheadMS < cfg.Timing.LeadMS {
		return fmt.Errorf("%w: timing.lookahead_ms (%v) must not be below timing.lead_ms (%v)",
			ErrInvalidConfig, cfg.Timing.LookaheadMS, cfg.Timing.LeadMS)
	}

	return nil
}
