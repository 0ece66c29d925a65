package sequencer

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiseq/internal/midi/mididarwin"
	"github.com/leandrodaf/midiseq/internal/midi/midiport"
	"github.com/leandrodaf/midiseq/internal/midi/midiwindows"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// driverInitializers maps OS names to corresponding port driver initializers.
var driverInitializers = map[string]func(*contracts.SequencerOptions) (contracts.PortDriver, error){
	"darwin":  mididarwin.NewDriver,  // CoreMIDI.
	"windows": midiwindows.NewDriver, // winmm.
	"linux":   midiport.NewDriver,    // gomidi; the binary registers a backend.
	"freebsd": midiport.NewDriver,
}

// NewDriver initializes the port driver for the current operating system,
// returning ErrUnsupportedOS if there is none.
func NewDriver(opts *contracts.SequencerOptions) (contracts.PortDriver, error) {
	if initializer, exists := driverInitializers[runtime.GOOS]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, runtime.GOOS)
}
