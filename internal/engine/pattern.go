package engine

import (
	"math"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Pattern is an ordered, non-empty sequence of pitches or rests.
// Installed patterns are never mutated, so they can be shared by snapshots.
type Pattern []int

// SilentPattern is the single-rest default.
func SilentPattern() Pattern {
	return Pattern{contracts.Rest}
}

// NewPattern copies notes, turning anything outside 0..127 into a rest.
// An empty input yields the silent pattern.
func NewPattern(notes []int) Pattern {
	if len(notes) == 0 {
		return SilentPattern()
	}
	p := make(Pattern, len(notes))
	for i, n := range notes {
		if n < 0 || n > 127 {
			n = contracts.Rest
		}
		p[i] = n
	}
	return p
}

// Sounding reports whether at least one slot is a pitch.
func (p Pattern) Sounding() bool {
	for _, n := range p {
		if n >= 0 {
			return true
		}
	}
	return false
}

// At resolves the slot for a step index.
func (p Pattern) At(step int) int {
	n := len(p)
	return p[((step%n)+n)%n]
}

// infiniteLoops marks a chain slot that never exits.
const infiniteLoops = math.MaxInt

type chainSlot struct {
	pattern Pattern
	loops   int
}

// chain is the playlist plus its cursor. slots is replaced wholesale, never edited.
type chain struct {
	slots     []chainSlot
	index     int
	loopsLeft int
}

func (c chain) active() bool {
	return len(c.slots) > 0
}

func loopsFor(loops int) int {
	if loops <= 0 {
		return infiniteLoops
	}
	return loops
}

func newChain(slots []contracts.ChainSlot) chain {
	c := chain{slots: make([]chainSlot, len(slots))}
	for i, s := range slots {
		c.slots[i] = chainSlot{pattern: NewPattern(s.Notes), loops: s.Loops}
	}
	return c
}

// activate points the cursor at slot i (clamped) and returns its pattern.
func (c chain) activate(i int) (chain, Pattern) {
	if i < 0 {
		i = 0
	}
	if i > len(c.slots)-1 {
		i = len(c.slots) - 1
	}
	c.index = i
	c.loopsLeft = loopsFor(c.slots[i].loops)
	return c, c.slots[i].pattern
}

// playhead is the part of the state both drivers advance per step.
type playhead struct {
	step    int     // -1 until the first step of the current pattern
	pattern Pattern // never empty
	pending Pattern // bar-quantized swap, nil when none
	chain   chain
}

func newPlayhead() playhead {
	return playhead{step: -1, pattern: SilentPattern()}
}

// playable reports whether a running driver should step at all.
func (p playhead) playable() bool {
	return p.pattern.Sounding() || p.chain.active()
}

// atBarStart reports whether the next step lands on position 0.
func (p playhead) atBarStart() bool {
	return p.step < 0 || (p.step+1)%len(p.pattern) == 0
}

// advance takes one step: a staged pattern is swapped in first when the
// cursor is at a bar boundary, the cursor moves, the slot is resolved, and on
// wraparound the chain advancer runs. It returns the new playhead and the
// resolved slot.
func (p playhead) advance() (playhead, int) {
	if p.pending != nil && p.atBarStart() {
		p.pattern = p.pending
		p.pending = nil
		p.step = -1
	}

	p.step++
	slot := p.pattern.At(p.step)

	if (p.step+1)%len(p.pattern) == 0 {
		p = p.endOfBar()
	}
	return p, slot
}

// endOfBar decrements the active slot's loop budget and moves to the next
// slot when it is spent. Without a chain it is a no-op.
func (p playhead) endOfBar() playhead {
	if !p.chain.active() {
		return p
	}
	c := p.chain
	if c.loopsLeft != infiniteLoops && c.loopsLeft > 0 {
		c.loopsLeft--
	}
	if c.loopsLeft == 0 {
		c, p.pattern = c.activate((c.index + 1) % len(c.slots))
		p.step = -1
	}
	p.chain = c
	return p
}
