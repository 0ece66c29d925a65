package midiport

import (
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
)

// Encode renders a note message as wire bytes. Channels are 1-based on input.
func Encode(msg contracts.NoteMessage) []byte {
	ch := uint8(max(0, min(15, msg.Channel-1)))
	if msg.IsNoteOn() {
		return midi.NoteOn(ch, msg.Pitch&0x7F, msg.Velocity&0x7F).Bytes()
	}
	return midi.NoteOff(ch, msg.Pitch&0x7F).Bytes()
}
