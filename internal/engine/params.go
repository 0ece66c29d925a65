package engine

import (
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// commitReport describes a committed parameter edit for logging.
type commitReport struct {
	params            Params
	tempoChanged      bool
	subdivisionChange bool
	refenced          bool
	nudged            bool
}

// StageEdit replaces any staged edit with edit. A slave-mode flag takes effect
// at once; every other field waits for the commit deadline.
func (s *State) StageEdit(edit contracts.SetCommand, now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edit.SlaveMode != nil {
		s.setSlave(*edit.SlaveMode)
	}

	staged := edit
	s.pendingEdit = &staged
	if edit.Immediate {
		s.commitAt = now
	} else {
		s.commitAt = s.after(now, s.timings.Debounce)
	}
}

// setSlave switches the stepping driver. Leaving either mode discards the
// other driver's progress and fences the hand-over against the last note-off.
func (s *State) setSlave(on bool) {
	if s.slave == on {
		return
	}
	s.slave = on
	s.pulseCount = 0
	s.nextStepAt = 0
	if s.running {
		s.minNoteOn = max(s.minNoteOn, s.floor())
	}
}

// commitDue applies the staged edit once its deadline has passed.
func (s *State) commitDue(now int64) (commitReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingEdit == nil || now < s.commitAt {
		return commitReport{}, false
	}
	edit := *s.pendingEdit
	s.pendingEdit = nil
	s.commitAt = 0

	var rep commitReport
	next := s.params
	if edit.Tempo != nil {
		tempo := max(1.0, *edit.Tempo)
		rep.tempoChanged = tempo != next.TempoBPM
		next.TempoBPM = tempo
	}
	if edit.Subdivision != nil {
		sub := max(1, *edit.Subdivision)
		rep.subdivisionChange = sub != next.Subdivision
		next.Subdivision = sub
	}
	if edit.Gate != nil {
		next.GatePercent = clampFloat(*edit.Gate, 0, 100)
	}
	if edit.Channel != nil {
		next.Channel = max(1, min(16, *edit.Channel))
	}
	if edit.Transpose != nil {
		next.Transpose = *edit.Transpose
	}
	s.params = next
	rep.params = next

	switch {
	case rep.subdivisionChange && s.running:
		// The grid moved: restart the pattern and keep the first new note
		// clear of the last scheduled release.
		floor := s.floor()
		s.head.step = -1
		s.minNoteOn = floor
		if s.slave {
			s.pulseCount = 0
		} else {
			s.nextStepAt = max(s.after(now, s.timings.Lead), floor)
		}
		rep.refenced = true
	case rep.tempoChanged && s.running && !s.slave:
		if s.nextStepAt != 0 && s.nextStepAt < s.after(now, dueWindow) {
			s.nextStepAt = s.after(now, s.timings.Lead)
			rep.nudged = true
		}
	}
	return rep, true
}
