package engine

import (
	"context"
	"time"
)

// masterStatus classifies one master iteration.
type masterStatus int

const (
	masterIdle    masterStatus = iota // stopped or nothing to play
	masterSlaved                      // the external clock owns stepping
	masterWaiting                     // next step lies beyond the horizon
	masterFenced                      // next step deferred past the note-on floor
	masterStepped
)

// planMasterStep schedules at most one step whose timestamp falls within the
// lookahead horizon. Taking a single step per call lets staged swaps and chain
// transitions be observed on the very next step.
func (s *State) planMasterStep(now int64) (noteEvent, bool, masterStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slave {
		return noteEvent{}, false, masterSlaved
	}
	if !s.running || !s.head.playable() {
		return noteEvent{}, false, masterIdle
	}

	step := StepDuration(s.params.TempoBPM, s.params.Subdivision)
	gate := GateDuration(step, s.params.GatePercent)

	if s.nextStepAt == 0 {
		s.nextStepAt = s.after(now, s.timings.Lead)
	}
	at := s.nextStepAt
	if at > s.after(now, s.timings.Lookahead) {
		return noteEvent{}, false, masterWaiting
	}
	if s.fenced(at) {
		s.nextStepAt = s.minNoteOn + 1
		return noteEvent{}, false, masterFenced
	}

	ev, sounding := s.takeStep(at, gate)
	s.nextStepAt = at + int64(step)
	return ev, sounding, masterStepped
}

// Tick runs one master iteration at host time now: it commits a due
// parameter edit, plans a step and emits it. It returns the delay before the
// next iteration.
func (e *Engine) Tick(now int64) time.Duration {
	if rep, ok := e.state.commitDue(now); ok {
		e.logCommit(rep)
	}

	ev, sounding, status := e.state.planMasterStep(now)
	switch status {
	case masterIdle:
		return e.timings.IdlePoll
	case masterFenced:
		e.logger.Debug("step deferred past note-on floor")
	case masterStepped:
		if sounding {
			e.emit(ev)
		}
	}
	return e.timings.Poll
}

// RunMaster drives Tick until ctx is done.
func (e *Engine) RunMaster(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(e.Tick(e.clock.Now()))
		}
	}
}
