package engine

import (
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Start begins playback from the top of the pattern. The first note-on is
// fenced against the lead time and the last scheduled note-off, which
// survives every stop.
func (s *State) Start(now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = true
	s.head.step = -1
	s.pulseCount = 0
	s.armStartFence(now)
	s.clearPending()
}

// armStartFence blocks note-ons up to max(now+lead, floor) for whichever
// driver steps next. The master's first step lands just past it.
func (s *State) armStartFence(now int64) {
	fence := max(s.after(now, s.timings.Lead), s.floor())
	s.minNoteOn = fence
	s.nextStepAt = fence + 1
}

// Stop halts playback and forgets cursor, schedule and staged edits.
// lastNoteOff is kept so the next start can fence against it.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *State) stop() {
	s.running = false
	s.head.step = -1
	s.nextStepAt = 0
	s.pulseCount = 0
	s.minNoteOn = 0
	s.clearPending()
}

// Panic stops unconditionally and returns to the silent default pattern,
// dropping any chain, in either driver mode.
func (s *State) Panic() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stop()
	s.head = newPlayhead()
}

// patternOutcome tells the caller what InstallPattern did.
type patternOutcome int

const (
	patternIgnored patternOutcome = iota
	patternInstalled
	patternStaged
)

// InstallPattern replaces the pattern at once when stopped or silent and
// otherwise stages it for the next bar. It is ignored while a chain plays.
func (s *State) InstallPattern(p Pattern) patternOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.head.chain.active() {
		return patternIgnored
	}
	if s.running && s.head.pattern.Sounding() {
		s.head.pending = p
		return patternStaged
	}

	s.head.pattern = p
	s.head.pending = nil
	s.head.step = -1
	s.nextStepAt = 0
	if s.running {
		s.minNoteOn = max(s.minNoteOn, s.floor())
	}
	return patternInstalled
}

// InstallChain replaces the playlist wholesale and activates slot index.
// An empty playlist disables chain mode and silences the pattern.
func (s *State) InstallChain(slots []contracts.ChainSlot, index int, now int64) {
	c := newChain(slots)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearPending()
	s.head.step = -1

	if !c.active() {
		s.head.chain = chain{}
		s.head.pattern = SilentPattern()
		return
	}

	s.head.chain, s.head.pattern = c.activate(index)
	if s.slave {
		s.pulseCount = 0
	}
	s.armStartFence(now)
}

// ExternalStart handles a clock Start: like Start, but the pulse stream owns
// the schedule, so only the cursor, counter and floor are reset.
func (s *State) ExternalStart(at int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.slave {
		return
	}
	s.running = true
	s.pulseCount = 0
	s.head.step = -1
	s.lastPulseAt = at
	s.minNoteOn = s.floor()
	s.clearPending()
}

// ExternalContinue resumes without touching counters or cursor.
func (s *State) ExternalContinue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slave {
		s.running = true
	}
}

// ExternalStop handles a clock Stop.
func (s *State) ExternalStop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slave {
		s.stop()
	}
}
