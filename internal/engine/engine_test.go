package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/midiseq/sdk/contracts"
	"go.uber.org/zap/zaptest/observer"
)

func TestMasterPlaysPatternOnGrid(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60, -1, 64, 67}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 1600*ms)

	ons := em.noteOns()
	wantPitch := []int{60, 64, 67}
	// The first step lands just past the start fence at now+lead.
	wantAt := []int64{t0 + 5*ms + 1, t0 + 1005*ms + 1, t0 + 1505*ms + 1}
	if !equalInts(em.pitches(), wantPitch) {
		t.Fatalf("pitches = %v, want %v", em.pitches(), wantPitch)
	}
	for i, on := range ons {
		if on.at != wantAt[i] {
			t.Errorf("note-on %d at %d, want %d", i, on.at-t0, wantAt[i]-t0)
		}
		if on.msg.Velocity != contracts.NoteVelocity || on.msg.Channel != 1 {
			t.Errorf("note-on %d = %+v", i, on.msg)
		}
	}

	all := em.all()
	if off := all[1]; off.msg.IsNoteOn() || off.at != t0+255*ms+1 || off.msg.Pitch != 60 {
		t.Fatalf("first note-off = %+v at %d", off.msg, off.at-t0)
	}
}

func TestMasterIdlesWhenStoppedOrSilent(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	if d := e.Tick(clock.Now()); d != 10*time.Millisecond {
		t.Fatalf("idle poll = %v, want 10ms", d)
	}
	e.Apply(contracts.StartCommand{})
	if d := e.Tick(clock.Now()); d != 10*time.Millisecond {
		t.Fatalf("silent poll = %v, want 10ms", d)
	}
	runMaster(e, clock, time.Second.Nanoseconds())
	if len(em.all()) != 0 {
		t.Fatalf("silent pattern emitted %d events", len(em.all()))
	}
}

func TestStepsNeverOverlap(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60, 62, 64, 65}})
	e.Apply(contracts.SetCommand{Gate: floatPtr(100), Immediate: true})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 300*ms)

	e.Apply(contracts.SetCommand{Subdivision: intPtr(16), Tempo: floatPtr(200), Immediate: true})
	runMaster(e, clock, 700*ms)

	var lastOff int64
	for _, ev := range em.all() {
		if ev.msg.IsNoteOn() {
			if lastOff != 0 && ev.at <= lastOff {
				t.Fatalf("note-on at %d not after previous note-off %d", ev.at-t0, lastOff-t0)
			}
			continue
		}
		lastOff = max(lastOff, ev.at)
	}
}

func TestSubdivisionChangeRefences(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60, 62, 64, 65}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 100*ms)

	lastOff := e.State().Snapshot().LastNoteOff
	if lastOff != t0+255*ms+1 {
		t.Fatalf("lastNoteOff = %d, want just past 255ms", lastOff-t0)
	}

	e.Apply(contracts.SetCommand{Subdivision: intPtr(8), Immediate: true})
	runMaster(e, clock, 400*ms)

	ons := em.noteOns()
	if len(ons) < 2 {
		t.Fatalf("got %d note-ons, want at least 2", len(ons))
	}
	next := ons[1]
	if next.at <= lastOff+int64(time.Millisecond) {
		t.Fatalf("note-on at %d violates floor %d", next.at-t0, lastOff+int64(time.Millisecond)-t0)
	}
	if next.msg.Pitch != 60 {
		t.Fatalf("pattern did not restart: pitch %d", next.msg.Pitch)
	}
	if snap := e.State().Snapshot(); snap.Params.Subdivision != 8 {
		t.Fatalf("subdivision = %d", snap.Params.Subdivision)
	}
}

func TestTempoChangeNudgesOverdueStep(t *testing.T) {
	e, clock, em, logs := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.Apply(contracts.StartCommand{})

	clock.Set(t0 + 50*ms)
	e.Apply(contracts.SetCommand{Tempo: floatPtr(140), Immediate: true})
	e.Tick(clock.Now())

	ons := em.noteOns()
	if len(ons) != 1 || ons[0].at != t0+55*ms {
		t.Fatalf("note-ons = %+v, want one at 55ms", ons)
	}
	entries := logs.FilterMessage("parameters committed").All()
	if len(entries) != 1 || entries[0].ContextMap()["nudged"] != true {
		t.Fatalf("commit log = %+v", entries)
	}
}

func TestDebouncedEditsCoalesce(t *testing.T) {
	e, clock, _, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{Tempo: floatPtr(140)})
	clock.Advance(10 * ms)
	e.Apply(contracts.SetCommand{Gate: floatPtr(30)})

	e.Tick(t0 + 25*ms)
	if p := e.State().Snapshot().Params; p != DefaultParams() {
		t.Fatalf("committed before deadline: %+v", p)
	}

	e.Tick(t0 + 30*ms)
	snap := e.State().Snapshot()
	if snap.Params.GatePercent != 30 || snap.Params.TempoBPM != 120 {
		t.Fatalf("params = %+v, want gate 30 tempo 120", snap.Params)
	}
	if snap.PendingEdit != nil {
		t.Fatal("pending edit not cleared")
	}
}

func TestSetClampsParameters(t *testing.T) {
	e, clock, _, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{
		Tempo:       floatPtr(0),
		Subdivision: intPtr(-4),
		Gate:        floatPtr(250),
		Channel:     intPtr(40),
		Transpose:   intPtr(-12),
		Immediate:   true,
	})
	e.Tick(clock.Now())

	want := Params{TempoBPM: 1, Subdivision: 1, GatePercent: 100, Channel: 16, Transpose: -12}
	if got := e.State().Snapshot().Params; got != want {
		t.Fatalf("params = %+v, want %+v", got, want)
	}
}

func TestChannelAndTransposeApplyToNotes(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{Channel: intPtr(3), Transpose: intPtr(70), Immediate: true})
	e.Tick(clock.Now())
	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 20*ms)

	ons := em.noteOns()
	if len(ons) != 1 {
		t.Fatalf("got %d note-ons", len(ons))
	}
	if ons[0].msg.Pitch != 127 || ons[0].msg.Channel != 3 {
		t.Fatalf("note-on = %+v, want pitch 127 channel 3", ons[0].msg)
	}
	if b := ons[0].msg.Bytes(); b[0] != 0x92 {
		t.Fatalf("status byte = %#x", b[0])
	}
}

func TestSeqStagedWhileSounding(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60, 62}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 20*ms)

	e.Apply(contracts.SeqCommand{Notes: []int{70}})
	if snap := e.State().Snapshot(); snap.PendingPattern == nil || snap.Pattern[0] != 60 {
		t.Fatalf("pattern not staged: %+v", snap)
	}

	runMaster(e, clock, 1000*ms)
	got := em.pitches()
	if !equalInts(got, []int{60, 62, 70}) {
		t.Fatalf("pitches = %v, want [60 62 70]", got)
	}
}

func TestSeqInstalledAtOnceWhenSilent(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 50*ms)

	e.Apply(contracts.SeqCommand{Notes: []int{64}})
	snap := e.State().Snapshot()
	if snap.PendingPattern != nil || snap.Pattern[0] != 64 {
		t.Fatalf("pattern not installed: %+v", snap)
	}
	runMaster(e, clock, 20*ms)
	if !equalInts(em.pitches(), []int{64}) {
		t.Fatalf("pitches = %v", em.pitches())
	}
}

func TestSeqIgnoredWhileChainActive(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{{Notes: []int{60}}}})
	e.Apply(contracts.SeqCommand{Notes: []int{70}})

	snap := e.State().Snapshot()
	if snap.Pattern[0] != 60 || snap.PendingPattern != nil {
		t.Fatalf("seq touched chain pattern: %+v", snap)
	}
}

func TestChainPlaysThroughMaster(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{Subdivision: intPtr(16), Immediate: true})
	e.Tick(clock.Now())
	e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{
		{Notes: []int{60, 62}, Loops: 2},
		{Notes: []int{64}},
	}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 850*ms)

	want := []int{60, 62, 60, 62, 64, 64, 64}
	if got := em.pitches(); !equalInts(got, want) {
		t.Fatalf("pitches = %v, want %v", got, want)
	}
	st := e.Status()
	if st.ChainLength != 2 || st.ChainIndex != 1 || st.LoopsRemaining != contracts.InfiniteLoops {
		t.Fatalf("status = %+v", st)
	}
}

func TestEmptyChainSilences(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{{Notes: []int{60}}}})
	e.Apply(contracts.ChainCommand{})

	snap := e.State().Snapshot()
	if snap.ChainLength != 0 || snap.Pattern.Sounding() {
		t.Fatalf("empty chain left %+v", snap)
	}
}

func TestStopKeepsChainCursor(t *testing.T) {
	e, clock, _, _ := newTestEngine(t)

	idx := 1
	e.Apply(contracts.ChainCommand{Index: &idx, Slots: []contracts.ChainSlot{
		{Notes: []int{60}, Loops: 1},
		{Notes: []int{62}, Loops: 3},
	}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 20*ms)
	e.Apply(contracts.StopCommand{})

	snap := e.State().Snapshot()
	if snap.Running || snap.ChainIndex != 1 || snap.ChainLength != 2 {
		t.Fatalf("stop lost chain: %+v", snap)
	}
	if snap.LastNoteOff == 0 {
		t.Fatal("stop cleared lastNoteOff")
	}
}

func TestPanicClearsEverything(t *testing.T) {
	for _, slave := range []bool{false, true} {
		e, clock, _, logs := newTestEngine(t)

		e.Apply(contracts.SetCommand{SlaveMode: boolPtr(slave)})
		e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{{Notes: []int{60}}}})
		e.Apply(contracts.StartCommand{})
		e.HandleRealtime(clock.Now(), contracts.ClockStart)
		e.Apply(contracts.SetCommand{Tempo: floatPtr(90)})

		e.Apply(contracts.PanicCommand{})

		snap := e.State().Snapshot()
		if snap.Running || snap.Pattern.Sounding() || snap.ChainLength != 0 || snap.StepIndex != -1 {
			t.Fatalf("slave=%v: panic left %+v", slave, snap)
		}
		if snap.PendingEdit != nil || snap.PendingPattern != nil {
			t.Fatalf("slave=%v: panic kept pending work", slave)
		}
		if logs.FilterMessage("panic: transport stopped and pattern cleared").Len() != 1 {
			t.Fatalf("slave=%v: panic not logged", slave)
		}
	}
}

func TestLastNoteOffIsMonotonic(t *testing.T) {
	s := NewState(contracts.Timings{})
	s.RecordNoteOff(100)
	s.RecordNoteOff(50)
	if got := s.Snapshot().LastNoteOff; got != 100 {
		t.Fatalf("lastNoteOff = %d, want 100", got)
	}
}

func TestStartFencesAgainstEarlierNoteOff(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.State().RecordNoteOff(t0 + 100*ms)
	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 200*ms)

	ons := em.noteOns()
	if len(ons) == 0 || ons[0].at != t0+101*ms+1 {
		t.Fatalf("note-ons = %+v, want first just past 101ms", ons)
	}
}

// pulse feeds n clock pulses spaced by interval, starting after from.
func pulse(e *Engine, from, interval int64, n int) int64 {
	at := from
	for i := 0; i < n; i++ {
		at += interval
		e.HandleRealtime(at, contracts.ClockPulse)
	}
	return at
}

func TestSlaveStepsOnPulses(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.SeqCommand{Notes: []int{60, 62}})
	e.HandleRealtime(clock.Now(), contracts.ClockStart)

	last := pulse(e, t0, 20*ms, 23)
	if len(em.all()) != 0 {
		t.Fatal("stepped before pulsesPerStep")
	}
	last = pulse(e, last, 20*ms, 1)

	ons := em.noteOns()
	if len(ons) != 1 || ons[0].at != t0+480*ms || ons[0].msg.Pitch != 60 {
		t.Fatalf("note-ons = %+v, want 60 at 480ms", ons)
	}
	off := em.all()[1]
	if off.at <= ons[0].at || off.at >= ons[0].at+480*ms {
		t.Fatalf("gate out of step: off at %d", off.at-t0)
	}

	pulse(e, last, 20*ms, 24)
	if !equalInts(em.pitches(), []int{60, 62}) {
		t.Fatalf("pitches = %v", em.pitches())
	}
	if e.Tick(clock.Now()) != 5*time.Millisecond {
		t.Fatal("master should poll at the busy rate while slaved")
	}
}

// newFastSlave returns a running slave engine stepping on every pulse.
func newFastSlave(t *testing.T, notes []int) (*Engine, *manualClock, *recordingEmitter, *observer.ObservedLogs) {
	t.Helper()
	e, clock, em, logs := newTestEngine(t)
	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true), Subdivision: intPtr(96), Immediate: true})
	e.Tick(clock.Now())
	e.Apply(contracts.SeqCommand{Notes: notes})
	return e, clock, em, logs
}

func TestSlaveHonoursStartLead(t *testing.T) {
	e, _, em, logs := newFastSlave(t, []int{60})

	e.Apply(contracts.StartCommand{})
	if got := e.State().Snapshot().MinNoteOn; got != t0+5*ms {
		t.Fatalf("minNoteOn = %d, want now+lead", got-t0)
	}

	e.HandleRealtime(t0+2*ms, contracts.ClockPulse)
	if len(em.all()) != 0 {
		t.Fatal("note-on inside the start lead")
	}
	if logs.FilterMessage("clock boundary dropped by note-on floor").Len() != 1 {
		t.Fatal("dropped boundary not logged")
	}

	e.HandleRealtime(t0+6*ms, contracts.ClockPulse)
	ons := em.noteOns()
	if len(ons) != 1 || ons[0].at != t0+6*ms {
		t.Fatalf("note-ons = %+v, want one at 6ms", ons)
	}
}

func TestSlaveHonoursChainLead(t *testing.T) {
	e, clock, em, _ := newFastSlave(t, []int{60})
	e.Apply(contracts.StartCommand{})

	clock.Set(t0 + 50*ms)
	e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{{Notes: []int{64}}}})
	if got := e.State().Snapshot().MinNoteOn; got != t0+55*ms {
		t.Fatalf("minNoteOn = %d, want now+lead", got-t0)
	}

	e.HandleRealtime(t0+52*ms, contracts.ClockPulse)
	if len(em.all()) != 0 {
		t.Fatal("note-on inside the chain lead")
	}
	e.HandleRealtime(t0+56*ms, contracts.ClockPulse)
	if ons := em.noteOns(); len(ons) != 1 || ons[0].at != t0+56*ms || ons[0].msg.Pitch != 64 {
		t.Fatalf("note-ons = %+v, want 64 at 56ms", ons)
	}
}

func TestSlaveSubdivisionChangeRefences(t *testing.T) {
	e, _, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.SeqCommand{Notes: []int{60, 62, 64, 65}})
	e.HandleRealtime(t0, contracts.ClockStart)
	last := pulse(e, t0, 20*ms, 48)
	if !equalInts(em.pitches(), []int{60, 62}) {
		t.Fatalf("pitches = %v", em.pitches())
	}

	last = pulse(e, last, 20*ms, 5)
	e.Apply(contracts.SetCommand{Subdivision: intPtr(8), Immediate: true})
	e.Tick(last)

	snap := e.State().Snapshot()
	if snap.StepIndex != -1 || snap.PulseCount != 0 {
		t.Fatalf("cursor not reset: step %d pulses %d", snap.StepIndex, snap.PulseCount)
	}
	if snap.MinNoteOn != snap.LastNoteOff+ms {
		t.Fatalf("minNoteOn = %d, want lastNoteOff+1ms", snap.MinNoteOn-snap.LastNoteOff)
	}

	pulse(e, last, 20*ms, 24)
	ons := em.noteOns()
	if len(ons) < 3 {
		t.Fatalf("got %d note-ons after the change", len(ons)-2)
	}
	if ons[2].msg.Pitch != 60 || ons[2].at <= snap.MinNoteOn {
		t.Fatalf("first note after change = %+v at %d, floor %d", ons[2].msg, ons[2].at-t0, snap.MinNoteOn-t0)
	}
}

func TestSlaveSwapsPatternAtBarStart(t *testing.T) {
	e, _, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.SeqCommand{Notes: []int{60, 62, 64}})
	e.HandleRealtime(t0, contracts.ClockStart)
	last := pulse(e, t0, 20*ms, 24)

	e.Apply(contracts.SeqCommand{Notes: []int{70}})
	if e.State().Snapshot().PendingPattern == nil {
		t.Fatal("pattern not staged while sounding")
	}
	pulse(e, last, 20*ms, 4*24)

	want := []int{60, 62, 64, 70, 70}
	if got := em.pitches(); !equalInts(got, want) {
		t.Fatalf("pitches = %v, want %v", got, want)
	}
}

func TestSlaveAdvancesChain(t *testing.T) {
	e, _, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{
		{Notes: []int{60, 62}, Loops: 2},
		{Notes: []int{64}},
	}})
	e.HandleRealtime(t0, contracts.ClockStart)
	pulse(e, t0, 20*ms, 7*24)

	want := []int{60, 62, 60, 62, 64, 64, 64}
	if got := em.pitches(); !equalInts(got, want) {
		t.Fatalf("pitches = %v, want %v", got, want)
	}
	if st := e.Status(); st.ChainIndex != 1 || st.LoopsRemaining != contracts.InfiniteLoops {
		t.Fatalf("status = %+v", st)
	}
}

func TestSlaveDropsFencedBoundary(t *testing.T) {
	e, clock, em, logs := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.State().RecordNoteOff(t0 + 600*ms)
	e.HandleRealtime(clock.Now(), contracts.ClockStart)

	last := pulse(e, t0, 20*ms, 24)
	if len(em.all()) != 0 {
		t.Fatal("fenced boundary emitted a note")
	}
	if logs.FilterMessage("clock boundary dropped by note-on floor").Len() != 1 {
		t.Fatal("dropped boundary not logged")
	}

	pulse(e, last, 20*ms, 24)
	ons := em.noteOns()
	if len(ons) != 1 || ons[0].at != t0+960*ms {
		t.Fatalf("note-ons = %+v, want one at 960ms", ons)
	}
}

func TestPulsesIgnoredWithoutSlaveMode(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.HandleRealtime(clock.Now(), contracts.ClockStart)
	if e.State().Snapshot().Running {
		t.Fatal("external start honoured outside slave mode")
	}

	e.HandleRealtime(t0, contracts.ClockPulse)
	pulse(e, t0, 20*ms, 48)
	if len(em.all()) != 0 {
		t.Fatal("pulses stepped outside slave mode")
	}
	if got := e.State().Snapshot().PulseInterval; got < float64(19*ms) || got > float64(20*ms) {
		t.Fatalf("pulse interval = %v, want close to 20ms", got)
	}
}

func TestExternalStopAndContinue(t *testing.T) {
	e, clock, em, _ := newTestEngine(t)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	e.Apply(contracts.SeqCommand{Notes: []int{60, 62}})
	e.HandleRealtime(clock.Now(), contracts.ClockStart)
	last := pulse(e, t0, 20*ms, 24)

	e.HandleRealtime(last, contracts.ClockStop)
	last = pulse(e, last, 20*ms, 24)
	if len(em.noteOns()) != 1 {
		t.Fatal("stepped while stopped")
	}

	e.HandleRealtime(last, contracts.ClockContinue)
	pulse(e, last, 20*ms, 24)
	if !equalInts(em.pitches(), []int{60, 60}) {
		t.Fatalf("pitches = %v, want [60 60]", em.pitches())
	}
}

func TestSlaveToggleFencesRunningTransport(t *testing.T) {
	e, clock, _, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60}})
	e.Apply(contracts.StartCommand{})
	runMaster(e, clock, 20*ms)

	e.Apply(contracts.SetCommand{SlaveMode: boolPtr(true)})
	snap := e.State().Snapshot()
	if !snap.SlaveMode || snap.NextStepAt != 0 || snap.PulseCount != 0 {
		t.Fatalf("toggle state = %+v", snap)
	}
	if snap.MinNoteOn <= snap.LastNoteOff {
		t.Fatalf("minNoteOn %d not past lastNoteOff %d", snap.MinNoteOn, snap.LastNoteOff)
	}
}

func TestStatusReportsState(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	e.Apply(contracts.SeqCommand{Notes: []int{60, 200}})
	e.Apply(contracts.SetCommand{Tempo: floatPtr(90)})

	st := e.Status()
	if st.Running || st.TempoBPM != 120 || !st.PendingEdit {
		t.Fatalf("status = %+v", st)
	}
	if !equalInts(st.Pattern, []int{60, -1}) || st.StepIndex != -1 {
		t.Fatalf("status pattern = %v step %d", st.Pattern, st.StepIndex)
	}
	st.Pattern[0] = 1
	if e.State().Snapshot().Pattern[0] != 60 {
		t.Fatal("status aliases installed pattern")
	}
}

func TestRunMasterStopsOnCancel(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.RunMaster(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("RunMaster = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunMaster did not return")
	}
}

func TestConcurrentDrivers(t *testing.T) {
	e, clock, _, _ := newTestEngine(t)
	e.Apply(contracts.SeqCommand{Notes: []int{60, 62, 64}})
	e.Apply(contracts.StartCommand{})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			clock.Advance(ms)
			e.Tick(clock.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			e.HandleClock([]byte{contracts.ClockPulse})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			e.Apply(contracts.SetCommand{Tempo: floatPtr(float64(60 + i)), Immediate: i%2 == 0})
			e.Apply(contracts.SetCommand{SlaveMode: boolPtr(i%3 == 0)})
			e.Apply(contracts.SeqCommand{Notes: []int{60 + i%12}})
			_ = e.Status()
		}
	}()
	wg.Wait()
}
