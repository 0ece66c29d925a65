package sequencer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leandrodaf/midiseq/internal/control"
	"github.com/leandrodaf/midiseq/internal/engine"
	"github.com/leandrodaf/midiseq/internal/hosttime"
	"github.com/leandrodaf/midiseq/internal/midi/delivery"
	"github.com/leandrodaf/midiseq/internal/midi/midiport"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// sequencer wires the engine to its endpoints and control transports.
type sequencer struct {
	logger contracts.Logger
	driver contracts.PortDriver
	out    contracts.OutputPort

	stopInput func() error
	socket    *control.Socket
	mqtt      *control.MQTT

	engine *engine.Engine
	queue  *delivery.Queue

	closeOnce sync.Once
	closeErr  error
}

// open binds the endpoints. A missing output is fatal; a missing clock input
// only disables slave stepping.
func open(options contracts.SequencerOptions, driver contracts.PortDriver) (_ *sequencer, err error) {
	log := options.Logger
	s := &sequencer{logger: log, driver: driver}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if options.OutputName == "" {
		return nil, contracts.ErrOutputNotConfigured
	}
	out, info, err := driver.OpenOutput(options.OutputName)
	if err != nil {
		if !errors.Is(err, contracts.ErrOutputNotFound) {
			err = fmt.Errorf("%w: %v", contracts.ErrOutputNotFound, err)
		}
		return nil, err
	}
	s.out = out
	log.Info("MIDI destination opened",
		log.Field().String("name", info.Name),
		log.Field().String("manufacturer", info.Manufacturer))

	clock := hosttime.New()
	s.queue = delivery.New(clock, func(msg contracts.NoteMessage) error {
		return out.Send(midiport.Encode(msg))
	}, log)
	s.engine = engine.New(s.queue, clock, log, options.Timings)

	s.openInput(options.InputName)

	if options.ControlSocket != "" {
		if s.socket, err = control.ListenSocket(options.ControlSocket, log); err != nil {
			return nil, err
		}
	}
	if options.MQTT != nil {
		if s.mqtt, err = control.DialMQTT(*options.MQTT, log); err != nil {
			return nil, err
		}
		log.Info("MQTT control enabled", log.Field().String("topic", s.mqtt.Topic()))
	}
	return s, nil
}

func (s *sequencer) openInput(name string) {
	if name == "" {
		s.logger.Warn("no clock source configured; slave mode will not advance")
		return
	}
	stop, info, err := s.driver.ListenInput(name, s.engine.HandleClock)
	if err != nil {
		s.logger.Warn("clock source not found; slave mode will not advance",
			s.logger.Field().String("match", name),
			s.logger.Field().Error("error", err))
		return
	}
	s.stopInput = stop
	s.logger.Info("clock source connected", s.logger.Field().String("name", info.Name))
}

// Run drives delivery, the master scheduler and the control transports until
// ctx is done or one of them fails.
func (s *sequencer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ignoreCanceled(s.queue.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(s.engine.RunMaster(ctx)) })
	if s.socket != nil {
		g.Go(func() error { return s.socket.Serve(ctx, s.Apply) })
	}
	if s.mqtt != nil {
		g.Go(func() error { return s.mqtt.Serve(ctx, s.Apply) })
	}
	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Apply executes one control command.
func (s *sequencer) Apply(cmd contracts.Command) {
	s.engine.Apply(cmd)
}

// Status returns a snapshot of the shared state.
func (s *sequencer) Status() contracts.Status {
	return s.engine.Status()
}

// Close releases transports and endpoints. It is safe to call more than once.
func (s *sequencer) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.stopInput != nil {
			errs = append(errs, s.stopInput())
		}
		if s.socket != nil {
			errs = append(errs, s.socket.Close())
		}
		if s.mqtt != nil {
			errs = append(errs, s.mqtt.Close())
		}
		if s.out != nil {
			errs = append(errs, s.out.Close())
		}
		errs = append(errs, s.driver.Close())
		s.closeErr = errors.Join(errs...)
		_ = s.logger.Sync()
	})
	return s.closeErr
}
