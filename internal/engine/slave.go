package engine

import (
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// pulseOutcome classifies one clock pulse.
type pulseOutcome int

const (
	pulseCounted pulseOutcome = iota // no step boundary, or not following
	pulseFenced                      // boundary dropped by the note-on floor
	pulseStepped
)

// clockPulse refreshes the pulse-interval estimate and, when following the
// external clock, steps once every PulsesPerStep pulses. A boundary that
// would violate the floor is dropped rather than retried.
func (s *State) clockPulse(at int64) (noteEvent, bool, pulseOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastPulseAt != 0 && at > s.lastPulseAt {
		dt := float64(at - s.lastPulseAt)
		s.pulseInterval = (1-pulseSmoothing)*s.pulseInterval + pulseSmoothing*dt
	}
	s.lastPulseAt = at

	if !s.slave || !s.running || !s.head.playable() {
		return noteEvent{}, false, pulseCounted
	}

	pps := PulsesPerStep(s.params.Subdivision)
	s.pulseCount++
	if s.pulseCount < pps {
		return noteEvent{}, false, pulseCounted
	}
	s.pulseCount = 0

	if s.fenced(at) {
		return noteEvent{}, false, pulseFenced
	}

	gate := slaveGate(pps, s.params.GatePercent, s.pulseInterval, s.timings.FallbackGate)
	ev, sounding := s.takeStep(at, gate)
	return ev, sounding, pulseStepped
}

// HandleClock consumes raw bytes from the clock input, stamping them with the
// current host time. It runs on the driver's delivery callback and returns
// after handing any note to the emitter.
func (e *Engine) HandleClock(data []byte) {
	at := e.clock.Now()
	for _, b := range data {
		e.HandleRealtime(at, b)
	}
}

// HandleRealtime applies one real-time byte received at host time at.
// Bytes other than Start, Continue, Stop and Clock are ignored.
func (e *Engine) HandleRealtime(at int64, b byte) {
	switch b {
	case contracts.ClockStart:
		e.state.ExternalStart(at)
	case contracts.ClockContinue:
		e.state.ExternalContinue()
	case contracts.ClockStop:
		e.state.ExternalStop()
	case contracts.ClockPulse:
		ev, sounding, outcome := e.state.clockPulse(at)
		switch {
		case outcome == pulseFenced:
			e.logger.Debug("clock boundary dropped by note-on floor")
		case sounding:
			e.emit(ev)
		}
	}
}
