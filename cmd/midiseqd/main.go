// Command midiseqd runs the step sequencer daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leandrodaf/midiseq/internal/config"
	"github.com/leandrodaf/midiseq/internal/logger"
	"github.com/leandrodaf/midiseq/internal/midi/endpoint"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"github.com/leandrodaf/midiseq/sdk/sequencer"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		output     = flag.String("output", "", "destination name substring (overrides "+config.EnvOutput+")")
		input      = flag.String("input", "", "clock source name substring (overrides "+config.EnvInput+")")
		socket     = flag.String("socket", "", "control socket path (overrides "+config.EnvSocket+")")
		logLevel   = flag.String("log-level", "", "debug|info|warn|error")
		list       = flag.Bool("list", false, "list MIDI endpoints and exit")
	)
	flag.Parse()

	log := logger.NewZapLogger()

	cfg, err := config.Read(*configPath)
	if err != nil {
		log.Fatal("failed to load configuration", log.Field().Error("error", err))
	}
	override(&cfg.Output, *output)
	override(&cfg.Input, *input)
	override(&cfg.Control.Socket, *socket)
	override(&cfg.Log.Level, *logLevel)

	if *list {
		if err := listEndpoints(log, cfg); err != nil {
			log.Fatal("failed to list endpoints", log.Field().Error("error", err))
		}
		return
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatal("invalid configuration", log.Field().Error("error", err))
	}
	opts, err := cfg.Options()
	if err != nil {
		log.Fatal("invalid configuration", log.Field().Error("error", err))
	}

	seq, err := sequencer.NewSequencer(append(opts, contracts.WithLogger(log))...)
	if err != nil {
		log.Fatal("failed to start sequencer", log.Field().Error("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("sequencer running", log.Field().String("output", cfg.Output))
	runErr := seq.Run(ctx)
	if err := seq.Close(); err != nil {
		log.Warn("error while closing sequencer", log.Field().Error("error", err))
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatal("sequencer stopped", log.Field().Error("error", runErr))
	}
	log.Info("sequencer stopped")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func listEndpoints(log contracts.Logger, cfg *config.Config) error {
	driver, err := sequencer.NewDriver(&contracts.SequencerOptions{
		Logger:         log,
		CoreMIDIConfig: &contracts.CoreMIDIConfig{ClientName: cfg.ClientName},
	})
	if err != nil {
		return err
	}
	defer driver.Close()

	outs, err := driver.ListOutputs()
	if err != nil {
		return err
	}
	ins, err := driver.ListInputs()
	if err != nil {
		return err
	}
	for _, name := range endpoint.Names(outs) {
		fmt.Println("out:", name)
	}
	for _, name := range endpoint.Names(ins) {
		fmt.Println("in: ", name)
	}
	return nil
}
