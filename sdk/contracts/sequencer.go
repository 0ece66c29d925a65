package contracts

import "context"

// InfiniteLoops is reported in Status.LoopsRemaining for a slot that never exits.
const InfiniteLoops = -1

// Status is a consistent copy of the sequencer state taken under its lock.
type Status struct {
	Running     bool
	SlaveMode   bool
	TempoBPM    float64
	Subdivision int
	GatePercent float64
	Channel     int
	Transpose   int

	Pattern   []int
	StepIndex int

	ChainLength    int
	ChainIndex     int
	LoopsRemaining int

	PendingPattern bool
	PendingEdit    bool

	LastNoteOff   int64
	MinNoteOn     int64
	PulseInterval float64
}

// Sequencer is a running step sequencer bound to a MIDI destination.
type Sequencer interface {
	// Run drives the master scheduler and the control transports until ctx is done.
	Run(ctx context.Context) error
	// Apply executes one control command as if it had arrived on the control channel.
	Apply(cmd Command)
	// Status returns a snapshot of the shared state.
	Status() Status
	// Close releases the MIDI endpoints.
	Close() error
}
