// Package engine implements the step sequencer core: the shared musical
// state with its note-off fences, the parameter committer, the pattern and
// chain advancer, and the master and slave stepping drivers.
package engine

import (
	"github.com/leandrodaf/midiseq/internal/hosttime"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Engine binds the shared state to a clock, an emitter and a logger.
type Engine struct {
	state   *State
	emitter contracts.NoteEmitter
	clock   hosttime.Clock
	logger  contracts.Logger
	timings contracts.Timings
}

// New creates an engine in the stopped, silent default state.
func New(emitter contracts.NoteEmitter, clock hosttime.Clock, logger contracts.Logger, t contracts.Timings) *Engine {
	t = withDefaults(t)
	return &Engine{
		state:   NewState(t),
		emitter: emitter,
		clock:   clock,
		logger:  logger,
		timings: t,
	}
}

// State exposes the shared state.
func (e *Engine) State() *State {
	return e.state
}

// Apply executes one decoded control command.
func (e *Engine) Apply(cmd contracts.Command) {
	now := e.clock.Now()

	switch c := cmd.(type) {
	case contracts.SetCommand:
		e.state.StageEdit(c, now)
		if c.SlaveMode != nil {
			e.logger.Info("slave mode changed", e.logger.Field().Bool("slave", *c.SlaveMode))
		}
	case contracts.SeqCommand:
		switch e.state.InstallPattern(NewPattern(c.Notes)) {
		case patternIgnored:
			e.logger.Debug("pattern ignored while chain is active")
		case patternStaged:
			e.logger.Debug("pattern staged for next bar", e.logger.Field().Int("length", len(c.Notes)))
		case patternInstalled:
			e.logger.Debug("pattern installed", e.logger.Field().Int("length", len(c.Notes)))
		}
	case contracts.ChainCommand:
		index := 0
		if c.Index != nil {
			index = *c.Index
		}
		e.state.InstallChain(c.Slots, index, now)
		e.logger.Info("chain installed",
			e.logger.Field().Int("slots", len(c.Slots)),
			e.logger.Field().Int("index", index))
	case contracts.StartCommand:
		e.state.Start(now)
		e.logger.Info("transport started")
	case contracts.StopCommand:
		e.state.Stop()
		e.logger.Info("transport stopped")
	case contracts.PanicCommand:
		e.state.Panic()
		e.logger.Warn("panic: transport stopped and pattern cleared")
	default:
		e.logger.Debug("ignoring unsupported command")
	}
}

// emit hands a planned step to the emitter. It is never called under the lock.
func (e *Engine) emit(ev noteEvent) {
	on := contracts.NoteMessage{Command: contracts.NoteOn, Channel: ev.channel, Pitch: ev.pitch, Velocity: contracts.NoteVelocity}
	off := contracts.NoteMessage{Command: contracts.NoteOff, Channel: ev.channel, Pitch: ev.pitch}

	if err := e.emitter.Emit(ev.on, on); err != nil {
		e.logger.Warn("note-on not scheduled", e.logger.Field().Error("error", err))
	}
	if err := e.emitter.Emit(ev.off, off); err != nil {
		e.logger.Warn("note-off not scheduled", e.logger.Field().Error("error", err))
	}
}

func (e *Engine) logCommit(rep commitReport) {
	e.logger.Debug("parameters committed",
		e.logger.Field().Float64("tempo", rep.params.TempoBPM),
		e.logger.Field().Int("subdivision", rep.params.Subdivision),
		e.logger.Field().Float64("gate", rep.params.GatePercent),
		e.logger.Field().Int("channel", rep.params.Channel),
		e.logger.Field().Int("transpose", rep.params.Transpose),
		e.logger.Field().Bool("refenced", rep.refenced),
		e.logger.Field().Bool("nudged", rep.nudged),
	)
}

// Status converts a snapshot into the public status type.
func (e *Engine) Status() contracts.Status {
	snap := e.state.Snapshot()

	loops := snap.LoopsRemaining
	if loops == infiniteLoops {
		loops = contracts.InfiniteLoops
	}
	return contracts.Status{
		Running:        snap.Running,
		SlaveMode:      snap.SlaveMode,
		TempoBPM:       snap.Params.TempoBPM,
		Subdivision:    snap.Params.Subdivision,
		GatePercent:    snap.Params.GatePercent,
		Channel:        snap.Params.Channel,
		Transpose:      snap.Params.Transpose,
		Pattern:        append([]int(nil), snap.Pattern...),
		StepIndex:      snap.StepIndex,
		ChainLength:    snap.ChainLength,
		ChainIndex:     snap.ChainIndex,
		LoopsRemaining: loops,
		PendingPattern: snap.PendingPattern != nil,
		PendingEdit:    snap.PendingEdit != nil,
		LastNoteOff:    snap.LastNoteOff,
		MinNoteOn:      snap.MinNoteOn,
		PulseInterval:  snap.PulseInterval,
	}
}
