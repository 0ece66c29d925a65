package sequencer

import (
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// NewSequencer creates a step sequencer with the specified options.
// It applies default options, selects the port driver for the current
// operating system and opens the configured endpoints.
//
// opts ...contracts.Option: A variadic list of option functions to customize the sequencer.
//
// Returns:
//   - contracts.Sequencer: A sequencer ready to Run.
//   - error: ErrOutputNotConfigured or ErrOutputNotFound when no destination
//     can be used, or any error raised while opening the control transports.
func NewSequencer(opts ...contracts.Option) (contracts.Sequencer, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	driver := options.Driver
	if driver == nil {
		driver, err = NewDriver(&options)
		if err != nil {
			return nil, err
		}
	}

	seq, err := open(options, driver)
	if err != nil {
		return nil, err
	}
	return seq, nil
}
