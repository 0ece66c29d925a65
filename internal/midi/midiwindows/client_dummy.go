//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

type dummyDriver struct {
	logger contracts.Logger
}

// NewDriver initializes a dummy winmm driver for non-Windows systems.
func NewDriver(options *contracts.SequencerOptions) (contracts.PortDriver, error) {
	options.Logger.Info("Using dummy winmm driver for non-Windows system")
	return &dummyDriver{
		logger: options.Logger,
	}, nil
}

func unavailable() error {
	return fmt.Errorf("%w: winmm is not available on %s", contracts.ErrUnsupportedOS, runtime.GOOS)
}

func (d *dummyDriver) ListOutputs() ([]contracts.EndpointInfo, error) {
	d.logger.Warn("ListOutputs called on dummy winmm driver")
	return nil, unavailable()
}

func (d *dummyDriver) ListInputs() ([]contracts.EndpointInfo, error) {
	d.logger.Warn("ListInputs called on dummy winmm driver")
	return nil, unavailable()
}

func (d *dummyDriver) OpenOutput(string) (contracts.OutputPort, contracts.EndpointInfo, error) {
	return nil, contracts.EndpointInfo{}, unavailable()
}

func (d *dummyDriver) ListenInput(string, contracts.InputHandler) (func() error, contracts.EndpointInfo, error) {
	return nil, contracts.EndpointInfo{}, unavailable()
}

func (d *dummyDriver) Close() error {
	return nil
}
