package contracts

import "time"

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// Timings holds the scheduling constants of the engine.
type Timings struct {
	Lookahead    time.Duration // Master scheduler horizon.
	Lead         time.Duration // Minimum distance of a new step from "now".
	Poll         time.Duration // Master scheduler cadence while playing or slaved.
	IdlePoll     time.Duration // Master scheduler cadence while idle.
	Debounce     time.Duration // Commit delay of non-immediate parameter edits.
	Safety       time.Duration // Gap between the last note-off and the next note-on.
	FallbackGate time.Duration // Slave gate length before the pulse estimate warms up.
}

// MQTTConfig enables the MQTT control transport.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	QoS      byte
	ClientID string // Generated when empty.
}

// SequencerOptions defines the configuration options for the sequencer.
type SequencerOptions struct {
	Logger         Logger          // Logger for logging events and errors.
	LogLevel       LogLevel        // Level of logging to use.
	LogFilePath    string          // File path for logging if file logging is enabled.
	CoreMIDIConfig *CoreMIDIConfig // Configuration specific to CoreMIDI.

	OutputName string // Substring of the destination name. Required.
	InputName  string // Substring of the clock source name. Optional.

	ControlSocket string      // Unix datagram socket path; empty disables it.
	MQTT          *MQTTConfig // Optional MQTT control transport.

	Timings Timings
	Driver  PortDriver // Overrides the platform driver when set.
}

// Option is a function that modifies SequencerOptions.
type Option func(*SequencerOptions)

// WithLogger sets the logger for the sequencer.
func WithLogger(l Logger) Option {
	return func(opts *SequencerOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the sequencer.
func WithLogLevel(level LogLevel) Option {
	return func(opts *SequencerOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile directs log output to a file.
func WithLogFile(path string) Option {
	return func(opts *SequencerOptions) {
		opts.LogFilePath = path
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *SequencerOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// WithOutput selects the note destination by name substring.
func WithOutput(name string) Option {
	return func(opts *SequencerOptions) {
		opts.OutputName = name
	}
}

// WithInput selects the clock/transport source by name substring.
func WithInput(name string) Option {
	return func(opts *SequencerOptions) {
		opts.InputName = name
	}
}

// WithControlSocket sets the unix datagram control socket path.
func WithControlSocket(path string) Option {
	return func(opts *SequencerOptions) {
		opts.ControlSocket = path
	}
}

// WithMQTT enables the MQTT control transport.
func WithMQTT(config MQTTConfig) Option {
	return func(opts *SequencerOptions) {
		opts.MQTT = &config
	}
}

// WithTimings overrides the non-zero scheduling constants.
func WithTimings(t Timings) Option {
	return func(opts *SequencerOptions) {
		opts.Timings = t
	}
}

// WithDriver replaces the platform port driver.
func WithDriver(d PortDriver) Option {
	return func(opts *SequencerOptions) {
		opts.Driver = d
	}
}
