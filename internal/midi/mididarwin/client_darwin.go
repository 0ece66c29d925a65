//go:build darwin
// +build darwin

package mididarwin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midiseq/internal/midi/endpoint"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// Error definitions for CoreMIDI port handling.
var (
	ErrCreateOutputPort = errors.New("error creating output port")
	ErrCreateInputPort  = errors.New("error creating input port")
	ErrConnectSource    = errors.New("error connecting to MIDI source")
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// onceConnection disconnects at most once, whichever of stop or Close comes first.
type onceConnection struct {
	once sync.Once
	conn internalPortConnection
}

func (c *onceConnection) Disconnect() {
	c.once.Do(c.conn.Disconnect)
}

// Driver opens CoreMIDI destinations for notes and sources for the clock.
type Driver struct {
	logger contracts.Logger
	client coremidi.Client

	mu     sync.Mutex
	conns  []internalPortConnection
	closed bool
}

// NewDriver creates a CoreMIDI client named after the configured client name.
func NewDriver(options *contracts.SequencerOptions) (contracts.PortDriver, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, fmt.Errorf("creating CoreMIDI client: %w", err)
	}
	options.Logger.Info("CoreMIDI client created",
		options.Logger.Field().String("client", options.CoreMIDIConfig.ClientName))

	return &Driver{logger: options.Logger, client: client}, nil
}

// ListOutputs returns every CoreMIDI destination.
func (d *Driver) ListOutputs() ([]contracts.EndpointInfo, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	return describeDestinations(dests), nil
}

func describeDestinations(dests []coremidi.Destination) []contracts.EndpointInfo {
	infos := make([]contracts.EndpointInfo, len(dests))
	for i, dest := range dests {
		entity := dest.Entity()
		infos[i] = contracts.EndpointInfo{
			Name:         dest.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return infos
}

// ListInputs returns every CoreMIDI source.
func (d *Driver) ListInputs() ([]contracts.EndpointInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	return describeSources(sources), nil
}

func describeSources(sources []coremidi.Source) []contracts.EndpointInfo {
	infos := make([]contracts.EndpointInfo, len(sources))
	for i, source := range sources {
		entity := source.Entity()
		infos[i] = contracts.EndpointInfo{
			Name:         source.Name(),
			EntityName:   entity.Name(),
			Manufacturer: entity.Manufacturer(),
		}
	}
	return infos
}

type outputPort struct {
	mu   sync.Mutex
	port coremidi.OutputPort
	dest coremidi.Destination
}

// Send writes one packet stamped "now"; timing is owned by the delivery queue.
func (o *outputPort) Send(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	packet := coremidi.NewPacket(data, 0)
	return packet.Send(&o.port, &o.dest)
}

// Close is a no-op: CoreMIDI ports live as long as the client.
func (o *outputPort) Close() error {
	return nil
}

// OpenOutput connects an output port to the first destination whose name
// contains match.
func (d *Driver) OpenOutput(match string) (contracts.OutputPort, contracts.EndpointInfo, error) {
	dests, err := coremidi.AllDestinations()
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("error listing MIDI destinations: %w", err)
	}
	infos := describeDestinations(dests)
	i, err := endpoint.Select(infos, match, contracts.ErrOutputNotFound)
	if err != nil {
		d.logger.Error("MIDI destination not found",
			d.logger.Field().String("match", match),
			d.logger.Field().Int("available", len(dests)))
		return nil, contracts.EndpointInfo{}, err
	}

	port, err := coremidi.NewOutputPort(d.client, "midiseq out")
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: %v", ErrCreateOutputPort, err)
	}
	d.logger.Info("MIDI destination selected", d.logger.Field().String("name", infos[i].Name))
	return &outputPort{port: port, dest: dests[i]}, infos[i], nil
}

// ListenInput connects an input port to the first source whose name contains
// match. handler runs on the CoreMIDI read thread.
func (d *Driver) ListenInput(match string, handler contracts.InputHandler) (func() error, contracts.EndpointInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	infos := describeSources(sources)
	i, err := endpoint.Select(infos, match, contracts.ErrInputNotFound)
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}

	port, err := coremidi.NewInputPort(d.client, "midiseq clock", func(_ coremidi.Source, packet coremidi.Packet) {
		if len(packet.Data) > 0 {
			handler(packet.Data)
		}
	})
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	portConn, err := port.Connect(sources[i])
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: %v", ErrConnectSource, err)
	}
	conn := &onceConnection{conn: portConn}

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()

	stop := func() error {
		conn.Disconnect()
		return nil
	}
	d.logger.Info("MIDI source connected", d.logger.Field().String("name", infos[i].Name))
	return stop, infos[i], nil
}

// Close disconnects every source connection.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	for _, conn := range d.conns {
		conn.Disconnect()
	}
	d.conns = nil
	return nil
}
