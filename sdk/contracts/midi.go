package contracts

// MIDICommand is the upper nibble of a channel voice status byte.
type MIDICommand byte

const (
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
)

// Single-byte system real-time signals consumed by the slave clock driver.
const (
	ClockPulse    byte = 0xF8 // 24 pulses per quarter note
	ClockStart    byte = 0xFA
	ClockContinue byte = 0xFB
	ClockStop     byte = 0xFC
)

// NoteVelocity is the fixed velocity of every emitted note-on.
const NoteVelocity byte = 100

// NoteMessage is a 3-byte channel voice message.
type NoteMessage struct {
	Command  MIDICommand
	Channel  int  // 1..16
	Pitch    byte // 0..127
	Velocity byte
}

// Bytes encodes the message with a zero-based channel in the status byte.
func (m NoteMessage) Bytes() []byte {
	return []byte{byte(m.Command) | byte((m.Channel-1)&0x0F), m.Pitch & 0x7F, m.Velocity & 0x7F}
}

// IsNoteOn reports whether the message starts a sounding note.
func (m NoteMessage) IsNoteOn() bool {
	return m.Command == NoteOn && m.Velocity > 0
}

// NoteEmitter accepts messages for delivery at a future host timestamp
// (monotonic nanoseconds). Emit must not block on device I/O.
type NoteEmitter interface {
	Emit(at int64, msg NoteMessage) error
}

// OutputPort sends raw bytes to an opened destination immediately.
type OutputPort interface {
	Send(data []byte) error
	Close() error
}

// InputHandler receives the raw bytes of every packet read from a source.
type InputHandler func(data []byte)

// PortDriver enumerates and opens MIDI endpoints on one platform backend.
// Endpoints are selected by case-insensitive substring match on their name.
type PortDriver interface {
	ListOutputs() ([]EndpointInfo, error)
	ListInputs() ([]EndpointInfo, error)
	OpenOutput(match string) (OutputPort, EndpointInfo, error)
	ListenInput(match string, handler InputHandler) (stop func() error, info EndpointInfo, err error)
	Close() error
}
