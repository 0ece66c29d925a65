//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

type DummyDriver struct {
	logger contracts.Logger
}

func NewDriver(options *contracts.SequencerOptions) (contracts.PortDriver, error) {
	options.Logger.Info("Using dummy CoreMIDI driver for non-macOS system")
	return &DummyDriver{
		logger: options.Logger,
	}, nil
}

func unavailable() error {
	return fmt.Errorf("%w: CoreMIDI is not available on %s", contracts.ErrUnsupportedOS, runtime.GOOS)
}

func (d *DummyDriver) ListOutputs() ([]contracts.EndpointInfo, error) {
	d.logger.Warn("ListOutputs called on dummy CoreMIDI driver")
	return nil, unavailable()
}

func (d *DummyDriver) ListInputs() ([]contracts.EndpointInfo, error) {
	d.logger.Warn("ListInputs called on dummy CoreMIDI driver")
	return nil, unavailable()
}

func (d *DummyDriver) OpenOutput(string) (contracts.OutputPort, contracts.EndpointInfo, error) {
	return nil, contracts.EndpointInfo{}, unavailable()
}

func (d *DummyDriver) ListenInput(string, contracts.InputHandler) (func() error, contracts.EndpointInfo, error) {
	return nil, contracts.EndpointInfo{}, unavailable()
}

func (d *DummyDriver) Close() error {
	return nil
}
