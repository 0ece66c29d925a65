//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/leandrodaf/midiseq/internal/midi/endpoint"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"golang.org/x/sys/windows"
)

// Type definitions for MIDI handles
type (
	HMIDIIN  windows.Handle
	HMIDIOUT windows.Handle
)

// Constants for callback flags
const (
	CALLBACK_NULL     = 0x00000000 // No callback
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // MIDI error
	MIM_LONGERROR = 0x3C6 // Long MIDI error
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

// ErrMMSystem wraps a non-zero MMRESULT.
var ErrMMSystem = errors.New("winmm call failed")

// Struct representing MIDI input device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Struct representing MIDI output device capabilities
type midiOutCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	wTechnology    uint16
	wVoices        uint16
	wNotes         uint16
	wChannelMask   uint16
	dwSupport      uint32
}

// Load the winmm.dll library and required functions
var (
	winmm                 = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs  = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps  = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen        = winmm.NewProc("midiInOpen")
	procMidiInStart       = winmm.NewProc("midiInStart")
	procMidiInStop        = winmm.NewProc("midiInStop")
	procMidiInClose       = winmm.NewProc("midiInClose")
	procMidiOutGetNumDevs = winmm.NewProc("midiOutGetNumDevs")
	procMidiOutGetDevCaps = winmm.NewProc("midiOutGetDevCapsW")
	procMidiOutOpen       = winmm.NewProc("midiOutOpen")
	procMidiOutShortMsg   = winmm.NewProc("midiOutShortMsg")
	procMidiOutReset      = winmm.NewProc("midiOutReset")
	procMidiOutClose      = winmm.NewProc("midiOutClose")
)

// Input callbacks are routed by an id passed as the callback instance, so no
// Go pointer is handed to winmm.
var (
	inputs       sync.Map // uintptr -> *inputConn
	nextInputID  atomic.Uintptr
	callbackOnce sync.Once
	callbackPtr  uintptr
)

func inCallback() uintptr {
	callbackOnce.Do(func() {
		callbackPtr = windows.NewCallback(midiInCallback)
	})
	return callbackPtr
}

type inputConn struct {
	logger  contracts.Logger
	handle  HMIDIIN
	handler contracts.InputHandler
}

// Driver manages winmm MIDI output and input devices.
type Driver struct {
	logger contracts.Logger

	mu      sync.Mutex
	outputs []*outputPort
	stops   []func() error
}

// NewDriver creates a winmm driver.
func NewDriver(options *contracts.SequencerOptions) (contracts.PortDriver, error) {
	options.Logger.Info("MIDI driver created for Windows")
	return &Driver{logger: options.Logger}, nil
}

// ListOutputs lists the available MIDI output devices.
func (d *Driver) ListOutputs() ([]contracts.EndpointInfo, error) {
	r0, _, _ := procMidiOutGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.EndpointInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiOutCaps
		r1, _, _ := procMidiOutGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			d.logger.Warn(fmt.Sprintf("Failed to get information for MIDI output %d", i))
			devices = append(devices, contracts.EndpointInfo{})
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.EndpointInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

// ListInputs lists the available MIDI input devices.
func (d *Driver) ListInputs() ([]contracts.EndpointInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)

	devices := make([]contracts.EndpointInfo, 0, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			d.logger.Warn(fmt.Sprintf("Failed to get information for MIDI input %d", i))
			devices = append(devices, contracts.EndpointInfo{})
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices = append(devices, contracts.EndpointInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		})
	}
	return devices, nil
}

type outputPort struct {
	mu     sync.Mutex
	handle HMIDIOUT
}

// Send packs up to three bytes into a short message.
func (o *outputPort) Send(data []byte) error {
	var msg uintptr
	for i := 0; i < len(data) && i < 3; i++ {
		msg |= uintptr(data[i]) << (8 * i)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handle == 0 {
		return fmt.Errorf("%w: output closed", ErrMMSystem)
	}
	if r1, _, _ := procMidiOutShortMsg.Call(uintptr(o.handle), msg); r1 != 0 {
		return fmt.Errorf("%w: midiOutShortMsg returned %d", ErrMMSystem, r1)
	}
	return nil
}

// Close silences and releases the device.
func (o *outputPort) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.handle == 0 {
		return nil
	}
	procMidiOutReset.Call(uintptr(o.handle))
	r1, _, _ := procMidiOutClose.Call(uintptr(o.handle))
	o.handle = 0
	if r1 != 0 {
		return fmt.Errorf("%w: midiOutClose returned %d", ErrMMSystem, r1)
	}
	return nil
}

// OpenOutput opens the first output device whose name contains match.
func (d *Driver) OpenOutput(match string) (contracts.OutputPort, contracts.EndpointInfo, error) {
	devices, err := d.ListOutputs()
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}
	id, err := endpoint.Select(devices, match, contracts.ErrOutputNotFound)
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}

	var handle HMIDIOUT
	r1, _, callErr := procMidiOutOpen.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(id),
		0,
		0,
		CALLBACK_NULL,
	)
	if r1 != 0 {
		d.logger.Error(fmt.Sprintf("Failed to open MIDI output %d: %v", id, callErr))
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: midiOutOpen(%d) returned %d", ErrMMSystem, id, r1)
	}

	out := &outputPort{handle: handle}
	d.mu.Lock()
	d.outputs = append(d.outputs, out)
	d.mu.Unlock()

	d.logger.Info(fmt.Sprintf("MIDI output %d connected", id), d.logger.Field().String("name", devices[id].Name))
	return out, devices[id], nil
}

// ListenInput opens the first input device whose name contains match and
// starts delivering its short messages to handler.
func (d *Driver) ListenInput(match string, handler contracts.InputHandler) (func() error, contracts.EndpointInfo, error) {
	devices, err := d.ListInputs()
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}
	id, err := endpoint.Select(devices, match, contracts.ErrInputNotFound)
	if err != nil {
		return nil, contracts.EndpointInfo{}, err
	}

	conn := &inputConn{logger: d.logger, handler: handler}
	key := nextInputID.Add(1)
	inputs.Store(key, conn)

	fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS
	r1, _, callErr := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&conn.handle)),
		uintptr(id),
		inCallback(),
		key,
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		inputs.Delete(key)
		d.logger.Error(fmt.Sprintf("Failed to open MIDI input %d: %v", id, callErr))
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: midiInOpen(%d) returned %d", ErrMMSystem, id, r1)
	}

	if r1, _, _ := procMidiInStart.Call(uintptr(conn.handle)); r1 != 0 {
		procMidiInClose.Call(uintptr(conn.handle))
		inputs.Delete(key)
		return nil, contracts.EndpointInfo{}, fmt.Errorf("%w: midiInStart returned %d", ErrMMSystem, r1)
	}

	var once sync.Once
	stop := func() error {
		var err error
		once.Do(func() {
			procMidiInStop.Call(uintptr(conn.handle))
			if r1, _, _ := procMidiInClose.Call(uintptr(conn.handle)); r1 != 0 {
				err = fmt.Errorf("%w: midiInClose returned %d", ErrMMSystem, r1)
			}
			inputs.Delete(key)
		})
		return err
	}

	d.mu.Lock()
	d.stops = append(d.stops, stop)
	d.mu.Unlock()

	d.logger.Info(fmt.Sprintf("MIDI input %d connected", id), d.logger.Field().String("name", devices[id].Name))
	return stop, devices[id], nil
}

// midiInCallback processes incoming MIDI messages
func midiInCallback(hMidiIn, wMsg, dwInstance, dwParam1, dwParam2 uintptr) uintptr {
	v, ok := inputs.Load(dwInstance)
	if !ok {
		return 0
	}
	conn := v.(*inputConn)

	switch wMsg {
	case MIM_OPEN:
		conn.logger.Debug("MIDI input opened")
	case MIM_CLOSE:
		conn.logger.Debug("MIDI input closed")
	case MIM_DATA:
		status := byte(dwParam1 & 0xFF)
		if status >= 0xF8 {
			conn.handler([]byte{status})
			return 0
		}
		conn.handler([]byte{status, byte((dwParam1 >> 8) & 0xFF), byte((dwParam1 >> 16) & 0xFF)})
	case MIM_ERROR, MIM_LONGERROR:
		conn.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	case MIM_MOREDATA:
		conn.logger.Debug("Received MIM_MOREDATA message; ignored")
	}
	return 0
}

// Close stops every input and closes every output.
func (d *Driver) Close() error {
	d.mu.Lock()
	stops, outputs := d.stops, d.outputs
	d.stops, d.outputs = nil, nil
	d.mu.Unlock()

	var errs []error
	for _, stop := range stops {
		errs = append(errs, stop())
	}
	for _, out := range outputs {
		errs = append(errs, out.Close())
	}
	return errors.Join(errs...)
}
