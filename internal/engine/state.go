package engine

import (
	"sync"
	"time"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Params are the timing parameters mutated only by the committer.
type Params struct {
	TempoBPM    float64
	Subdivision int
	GatePercent float64
	Channel     int
	Transpose   int
}

// DefaultParams are the neutral start-up values.
func DefaultParams() Params {
	return Params{TempoBPM: 120, Subdivision: 4, GatePercent: 50, Channel: 1, Transpose: 0}
}

// State is the single source of truth shared by the master scheduler, the
// slave clock driver and the control channel. Every method takes the lock for
// a handful of field reads and writes and never performs I/O while holding it.
type State struct {
	mu sync.Mutex

	timings contracts.Timings

	running bool
	params  Params
	head    playhead

	pendingEdit *contracts.SetCommand
	commitAt    int64

	// Host-time fences; zero means unset.
	nextStepAt  int64
	lastNoteOff int64
	minNoteOn   int64

	slave         bool
	pulseCount    int
	lastPulseAt   int64
	pulseInterval float64
}

// NewState returns a stopped, silent state with default parameters.
func NewState(t contracts.Timings) *State {
	return &State{
		timings: withDefaults(t),
		params:  DefaultParams(),
		head:    newPlayhead(),
	}
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	Running bool
	Params  Params

	Pattern        Pattern
	StepIndex      int
	PendingPattern Pattern
	PendingEdit    *contracts.SetCommand
	CommitAt       int64

	ChainLength    int
	ChainIndex     int
	LoopsRemaining int // infiniteLoops for an endless slot

	NextStepAt  int64
	LastNoteOff int64
	MinNoteOn   int64

	SlaveMode     bool
	PulseCount    int
	LastPulseAt   int64
	PulseInterval float64
}

// Snapshot copies every field under the lock. Patterns are shared, not copied.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Running:        s.running,
		Params:         s.params,
		Pattern:        s.head.pattern,
		StepIndex:      s.head.step,
		PendingPattern: s.head.pending,
		CommitAt:       s.commitAt,
		ChainLength:    len(s.head.chain.slots),
		ChainIndex:     s.head.chain.index,
		LoopsRemaining: s.head.chain.loopsLeft,
		NextStepAt:     s.nextStepAt,
		LastNoteOff:    s.lastNoteOff,
		MinNoteOn:      s.minNoteOn,
		SlaveMode:      s.slave,
		PulseCount:     s.pulseCount,
		LastPulseAt:    s.lastPulseAt,
		PulseInterval:  s.pulseInterval,
	}
	if s.pendingEdit != nil {
		edit := *s.pendingEdit
		snap.PendingEdit = &edit
	}
	return snap
}

// RecordNoteOff raises the last note-off fence; earlier values are ignored.
func (s *State) RecordNoteOff(at int64) {
	s.mu.Lock()
	s.recordNoteOff(at)
	s.mu.Unlock()
}

func (s *State) recordNoteOff(at int64) {
	if at > s.lastNoteOff {
		s.lastNoteOff = at
	}
}

// floor is the earliest instant a new note-on may follow the last note-off.
func (s *State) floor() int64 {
	return s.lastNoteOff + int64(s.timings.Safety)
}

func (s *State) clearPending() {
	s.pendingEdit = nil
	s.commitAt = 0
	s.head.pending = nil
}

func (s *State) after(now int64, d time.Duration) int64 {
	return now + int64(d)
}

// noteEvent is a sounding step planned under the lock and emitted after it.
type noteEvent struct {
	on, off int64
	channel int
	pitch   byte
}

// takeStep advances the playhead at host time at and records the note-off
// fence for a sounding slot. Callers hold the lock and have checked the floor.
func (s *State) takeStep(at int64, gate time.Duration) (noteEvent, bool) {
	s.minNoteOn = 0

	var slot int
	s.head, slot = s.head.advance()
	if slot == contracts.Rest {
		return noteEvent{}, false
	}

	ev := noteEvent{
		on:      at,
		off:     at + int64(gate),
		channel: s.params.Channel,
		pitch:   clampPitch(slot + s.params.Transpose),
	}
	s.recordNoteOff(ev.off)
	return ev, true
}

// fenced reports whether a note-on at host time at would violate the floor.
func (s *State) fenced(at int64) bool {
	return s.minNoteOn != 0 && at <= s.minNoteOn
}
