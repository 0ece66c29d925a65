package sequencer

import (
	"github.com/leandrodaf/midiseq/internal/logger"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// applyDefaultOptions sets default values for SequencerOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify SequencerOptions.
//
// Returns:
//   - contracts.SequencerOptions: The finalized options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.SequencerOptions, error) {
	options := &contracts.SequencerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}

	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: "midiseq"}
	}

	options.Logger.SetLevel(options.LogLevel) // the zero value is InfoLevel
	return *options, nil
}
