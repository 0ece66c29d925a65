package engine

import (
	"math"
	"time"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

const (
	// pulsesPerQuarter is the external clock resolution.
	pulsesPerQuarter = 24
	// gateMargin keeps gates away from zero length and from the next step.
	gateMargin = time.Millisecond
	// dueWindow is how close a pending step may be before a tempo change nudges it.
	dueWindow = time.Millisecond
	// pulseSmoothing is the EMA factor applied to pulse spacing.
	pulseSmoothing = 0.2
)

// DefaultTimings returns the scheduling constants used when none are configured.
func DefaultTimings() contracts.Timings {
	return contracts.Timings{
		Lookahead:    30 * time.Millisecond,
		Lead:         5 * time.Millisecond,
		Poll:         5 * time.Millisecond,
		IdlePoll:     10 * time.Millisecond,
		Debounce:     20 * time.Millisecond,
		Safety:       time.Millisecond,
		FallbackGate: 10 * time.Millisecond,
	}
}

// withDefaults fills every non-positive field from DefaultTimings.
func withDefaults(t contracts.Timings) contracts.Timings {
	d := DefaultTimings()
	pick := func(v, def time.Duration) time.Duration {
		if v <= 0 {
			return def
		}
		return v
	}
	return contracts.Timings{
		Lookahead:    pick(t.Lookahead, d.Lookahead),
		Lead:         pick(t.Lead, d.Lead),
		Poll:         pick(t.Poll, d.Poll),
		IdlePoll:     pick(t.IdlePoll, d.IdlePoll),
		Debounce:     pick(t.Debounce, d.Debounce),
		Safety:       pick(t.Safety, d.Safety),
		FallbackGate: pick(t.FallbackGate, d.FallbackGate),
	}
}

// StepDuration is (60/tempo) * (4/subdivision) seconds.
func StepDuration(tempoBPM float64, subdivision int) time.Duration {
	if tempoBPM < 1 {
		tempoBPM = 1
	}
	if subdivision < 1 {
		subdivision = 1
	}
	return time.Duration((60.0 / tempoBPM) * (4.0 / float64(subdivision)) * float64(time.Second))
}

// GateDuration is the held fraction of a step, clamped to
// [gateMargin, step-gateMargin]. Steps too short for both margins get half a step.
func GateDuration(step time.Duration, gatePercent float64) time.Duration {
	if step <= 2*gateMargin {
		return step / 2
	}
	gate := time.Duration(float64(step) * clampFloat(gatePercent, 0, 100) / 100)
	if gate < gateMargin {
		gate = gateMargin
	}
	if gate > step-gateMargin {
		gate = step - gateMargin
	}
	return gate
}

// PulsesPerStep converts a subdivision into external clock pulses.
func PulsesPerStep(subdivision int) int {
	if subdivision < 1 {
		subdivision = 1
	}
	return max(1, pulsesPerQuarter*4/subdivision)
}

// GateClocks is the gate length in pulses, within [1, pulsesPerStep-1].
func GateClocks(pulsesPerStep int, gatePercent float64) int {
	raw := int(math.Round(float64(pulsesPerStep) * clampFloat(gatePercent, 0, 100) / 100))
	return max(1, min(pulsesPerStep-1, raw))
}

// slaveGate derives the gate from the pulse estimate once it is warm.
func slaveGate(pulsesPerStep int, gatePercent, pulseInterval float64, fallback time.Duration) time.Duration {
	if pulseInterval <= 1 {
		return fallback
	}
	return time.Duration(float64(GateClocks(pulsesPerStep, gatePercent)) * pulseInterval)
}

func clampPitch(n int) byte {
	return byte(max(0, min(127, n)))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
