package engine

import (
	"testing"
	"time"
)

func TestStepDuration(t *testing.T) {
	tests := []struct {
		tempo float64
		sub   int
		want  time.Duration
	}{
		{120, 4, 500 * time.Millisecond},
		{120, 8, 250 * time.Millisecond},
		{60, 1, 4 * time.Second},
		{0, 0, 240 * time.Second},
	}
	for _, tt := range tests {
		if got := StepDuration(tt.tempo, tt.sub); got != tt.want {
			t.Errorf("StepDuration(%v, %d) = %v, want %v", tt.tempo, tt.sub, got, tt.want)
		}
	}
}

func TestGateDurationStaysInsideStep(t *testing.T) {
	if got := GateDuration(500*time.Millisecond, 50); got != 250*time.Millisecond {
		t.Fatalf("gate = %v, want 250ms", got)
	}
	for _, step := range []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 125 * time.Millisecond, time.Second} {
		for _, pct := range []float64{-10, 0, 1, 50, 99, 100, 150} {
			gate := GateDuration(step, pct)
			if gate <= 0 || gate >= step {
				t.Errorf("GateDuration(%v, %v) = %v, outside (0, step)", step, pct, gate)
			}
		}
	}
}

func TestPulsesPerStep(t *testing.T) {
	tests := map[int]int{1: 96, 4: 24, 8: 12, 16: 6, 96: 1, 200: 1, 0: 96}
	for sub, want := range tests {
		if got := PulsesPerStep(sub); got != want {
			t.Errorf("PulsesPerStep(%d) = %d, want %d", sub, got, want)
		}
	}
}

func TestGateClocks(t *testing.T) {
	tests := []struct {
		pps  int
		pct  float64
		want int
	}{
		{24, 50, 12},
		{24, 0, 1},
		{24, 100, 23},
		{6, 50, 3},
	}
	for _, tt := range tests {
		if got := GateClocks(tt.pps, tt.pct); got != tt.want {
			t.Errorf("GateClocks(%d, %v) = %d, want %d", tt.pps, tt.pct, got, tt.want)
		}
	}
}

func TestSlaveGateFallsBackUntilWarm(t *testing.T) {
	if got := slaveGate(24, 50, 0, 10*time.Millisecond); got != 10*time.Millisecond {
		t.Fatalf("cold gate = %v, want fallback", got)
	}
	interval := float64(20 * time.Millisecond)
	if got := slaveGate(24, 50, interval, 10*time.Millisecond); got != 240*time.Millisecond {
		t.Fatalf("warm gate = %v, want 240ms", got)
	}
}

func TestWithDefaultsKeepsPositiveFields(t *testing.T) {
	got := withDefaults(DefaultTimings())
	if got != DefaultTimings() {
		t.Fatalf("withDefaults changed defaults: %+v", got)
	}
	custom := DefaultTimings()
	custom.Lookahead = 50 * time.Millisecond
	custom.Safety = -1
	got = withDefaults(custom)
	if got.Lookahead != 50*time.Millisecond || got.Safety != time.Millisecond {
		t.Fatalf("withDefaults = %+v", got)
	}
}
