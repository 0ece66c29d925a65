// Package delivery hands timestamped MIDI messages to an output port at
// their host time, on a single goroutine pinned to its OS thread.
package delivery

import (
	"container/heap"
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/leandrodaf/midiseq/internal/hosttime"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// ErrQueueClosed is returned by Emit once the queue has stopped.
var ErrQueueClosed = errors.New("delivery queue closed")

// duplicateWindow is how close two note-ons for the same key may be before
// the second is reported.
const duplicateWindow = 25 * time.Millisecond

// SendFunc writes one message to the device.
type SendFunc func(msg contracts.NoteMessage) error

type item struct {
	at  int64
	seq uint64
	msg contracts.NoteMessage
}

// itemHeap orders by timestamp, then by arrival.
type itemHeap []item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// Queue implements contracts.NoteEmitter.
type Queue struct {
	clock  hosttime.Clock
	send   SendFunc
	logger contracts.Logger

	mu     sync.Mutex
	items  itemHeap
	seq    uint64
	closed bool
	lastOn map[uint16]int64 // channel<<8 | pitch

	wake chan struct{}
}

// New creates a queue delivering through send. Run must be started for
// messages to leave the queue.
func New(clock hosttime.Clock, send SendFunc, logger contracts.Logger) *Queue {
	return &Queue{
		clock:  clock,
		send:   send,
		logger: logger,
		lastOn: make(map[uint16]int64),
		wake:   make(chan struct{}, 1),
	}
}

// Emit schedules msg for host time at. It never blocks on the device.
func (q *Queue) Emit(at int64, msg contracts.NoteMessage) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.seq++
	heap.Push(&q.items, item{at: at, seq: q.seq, msg: msg})
	gap, duplicate := q.trackNoteOn(at, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	if duplicate {
		q.logger.Debug("note-on repeated within duplicate window",
			q.logger.Field().Int("channel", msg.Channel),
			q.logger.Field().Uint8("pitch", msg.Pitch),
			q.logger.Field().Duration("gap", gap))
	}
	return nil
}

func (q *Queue) trackNoteOn(at int64, msg contracts.NoteMessage) (time.Duration, bool) {
	if !msg.IsNoteOn() {
		return 0, false
	}
	key := uint16(msg.Channel)<<8 | uint16(msg.Pitch)
	prev, seen := q.lastOn[key]
	q.lastOn[key] = at
	gap := time.Duration(at - prev)
	return gap, seen && gap >= 0 && gap < duplicateWindow
}

// Len reports the number of undelivered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Run delivers messages until ctx is done. Pending note-offs are sent at
// once on the way out so no key is left sounding; pending note-ons are dropped.
func (q *Queue) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		wait := q.deliverDue()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			q.drain()
			return ctx.Err()
		case <-q.wake:
		case <-timer.C:
		}
	}
}

// deliverDue sends every message whose time has come and returns the delay
// until the next one.
func (q *Queue) deliverDue() time.Duration {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			return time.Hour
		}
		next := q.items[0]
		if wait := hosttime.Until(q.clock, next.at); wait > 0 {
			q.mu.Unlock()
			return wait
		}
		heap.Pop(&q.items)
		q.mu.Unlock()

		q.deliver(next.msg)
	}
}

func (q *Queue) deliver(msg contracts.NoteMessage) {
	if err := q.send(msg); err != nil {
		q.logger.Warn("failed to send MIDI message",
			q.logger.Field().Int("channel", msg.Channel),
			q.logger.Field().Uint8("pitch", msg.Pitch),
			q.logger.Field().Error("error", err))
	}
}

func (q *Queue) drain() {
	q.mu.Lock()
	q.closed = true
	var offs []contracts.NoteMessage
	for len(q.items) > 0 {
		it := heap.Pop(&q.items).(item)
		if !it.msg.IsNoteOn() {
			offs = append(offs, it.msg)
		}
	}
	q.mu.Unlock()

	for _, msg := range offs {
		q.deliver(msg)
	}
	if len(offs) > 0 {
		q.logger.Info("flushed pending note-offs", q.logger.Field().Int("count", len(offs)))
	}
}
