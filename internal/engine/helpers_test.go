package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leandrodaf/midiseq/internal/logger"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const ms = int64(time.Millisecond)

// t0 is an arbitrary host time well past zero.
const t0 = 10 * int64(time.Second)

type manualClock struct {
	now atomic.Int64
}

func newManualClock(at int64) *manualClock {
	c := &manualClock{}
	c.now.Store(at)
	return c
}

func (c *manualClock) Now() int64      { return c.now.Load() }
func (c *manualClock) Set(at int64)    { c.now.Store(at) }
func (c *manualClock) Advance(d int64) { c.now.Add(d) }

type emitted struct {
	at  int64
	msg contracts.NoteMessage
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(at int64, msg contracts.NoteMessage) error {
	r.mu.Lock()
	r.events = append(r.events, emitted{at: at, msg: msg})
	r.mu.Unlock()
	return nil
}

func (r *recordingEmitter) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

func (r *recordingEmitter) noteOns() []emitted {
	var out []emitted
	for _, e := range r.all() {
		if e.msg.IsNoteOn() {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingEmitter) pitches() []int {
	var out []int
	for _, e := range r.noteOns() {
		out = append(out, int(e.msg.Pitch))
	}
	return out
}

func newTestEngine(t *testing.T) (*Engine, *manualClock, *recordingEmitter, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	clock := newManualClock(t0)
	em := &recordingEmitter{}
	return New(em, clock, logger.NewWithCore(core), contracts.Timings{}), clock, em, logs
}

// runMaster ticks the master scheduler every 5 ms of host time for d.
func runMaster(e *Engine, clock *manualClock, d int64) {
	end := clock.Now() + d
	for clock.Now() < end {
		e.Tick(clock.Now())
		clock.Advance(5 * ms)
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
