// Package midiport is the portable port driver built on gomidi. A gomidi
// backend (such as rtmididrv) must be registered by the main package.
package midiport

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midiseq/internal/midi/endpoint"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNoBackend is returned when no gomidi driver has been registered.
var ErrNoBackend = errors.New("no gomidi driver registered")

// Driver implements contracts.PortDriver over gomidi ports.
type Driver struct {
	logger contracts.Logger

	mu    sync.Mutex
	outs  []drivers.Out
	stops []func() error
}

// NewDriver creates a gomidi-backed driver.
func NewDriver(options *contracts.SequencerOptions) (contracts.PortDriver, error) {
	if drivers.Get() == nil {
		return nil, ErrNoBackend
	}
	options.Logger.Info("gomidi driver ready", options.Logger.Field().String("backend", drivers.Get().String()))
	return &Driver{logger: options.Logger}, nil
}

func describeOuts(ports []drivers.Out) []contracts.EndpointInfo {
	infos := make([]contracts.EndpointInfo, len(ports))
	for i, p := range ports {
		infos[i] = contracts.EndpointInfo{Name: p.String(), EntityName: p.String()}
	}
	return infos
}

func describeIns(ports []drivers.In) []contracts.EndpointInfo {
	infos := make([]contracts.EndpointInfo, len(ports))
	for i, p := range ports {
		infos[i] = contracts.EndpointInfo{Name: p.String(), EntityName: p.String()}
	}
	return infos
}

// ListOutputs returns every gomidi out port.
func (d *Driver) ListOutputs() ([]contracts.EndpointInfo, error) {
	return describeOuts(midi.GetOutPorts()), nil
}

// ListInputs returns every gomidi in port.
func (d *Driver) ListInputs() ([]contracts.EndpointInfo, error) {
	return describeIns(midi.GetInPorts()), nil
}

type outputPort struct {
	mu   sync.Mutex
	out  drivers.Out
	send func(midi.Message) error
}

func (o *outputPort) Send(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.send(midi.Message(data))
}

func (o *outputPort) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.out.Close()
}

// OpenOutput opens the first out port whose name contains match.
func (d *Driver) OpenOutput(match string) (contracts.OutputPort, contracts.EndpointInfo, error) {
	ports := midi.GetOutPorts()
	infos := describeOuts(ports)
	i, err := endpoint.Select(infos, match, contracts.ErrOutputNotFound)
	if err != nil {
		d.logger.Error("MIDI out port not found",
			d.logger.Field().String("match", match),
			d.logger.Field().Int("available", len(ports)))
		return nil, contracts.EndpointInfo{}, err
	}

	send, err := midi.SendTo(ports[i])
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("opening %q: %w", infos[i].Name, err)
	}

	d.mu.Lock()
	d.outs = append(d.outs, ports[i])
	d.mu.Unlock()
	return &outputPort{out: ports[i], send: send}, infos[i], nil
}

// ListenInput listens on the first in port whose name contains match.
// Timing messages are requested explicitly so clock pulses get through.
func (d *Driver) ListenInput(match string, handler contracts.InputHandler) (func() error, contracts.EndpointInfo, error) {
	ports := midi.GetInPorts()
	infos := describeIns(ports)
	i, err := endpoint.Select(infos, match, contracts.ErrInputNotFound)
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}

	stopListen, err := midi.ListenTo(ports[i], func(msg midi.Message, _ int32) {
		if len(msg) > 0 {
			handler(msg.Bytes())
		}
	}, midi.UseTimeCode(), midi.HandleError(func(listenErr error) {
		d.logger.Warn("MIDI input error", d.logger.Field().Error("error", listenErr))
	}))
	if err != nil {
		return nil, contracts.EndpointInfo{}, fmt.Errorf("listening on %q: %w", infos[i].Name, err)
	}

	var once sync.Once
	stop := func() error {
		once.Do(stopListen)
		return nil
	}
	d.mu.Lock()
	d.stops = append(d.stops, stop)
	d.mu.Unlock()
	return stop, infos[i], nil
}

// Close stops listeners, closes opened ports and the gomidi backend.
func (d *Driver) Close() error {
	d.mu.Lock()
	stops, outs := d.stops, d.outs
	d.stops, d.outs = nil, nil
	d.mu.Unlock()

	var errs []error
	for _, stop := range stops {
		errs = append(errs, stop())
	}
	for _, out := range outs {
		errs = append(errs, out.Close())
	}
	midi.CloseDriver()
	return errors.Join(errs...)
}
