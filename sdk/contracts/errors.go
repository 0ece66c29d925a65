package contracts

import "errors"

// Errors returned by port drivers and the sequencer factory.
var (
	ErrOutputNotConfigured = errors.New("no MIDI output configured")
	ErrOutputNotFound      = errors.New("MIDI output not found")
	ErrInputNotFound       = errors.New("MIDI input not found")
	ErrUnsupportedOS       = errors.New("unsupported operating system")
)
