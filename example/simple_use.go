package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/leandrodaf/midiseq/internal/logger"
	"github.com/leandrodaf/midiseq/sdk/contracts"
	"github.com/leandrodaf/midiseq/sdk/sequencer"
)

func main() {
	log := logger.NewZapLogger()

	seq, err := sequencer.NewSequencer(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithOutput("IAC"),
		contracts.WithCoreMIDIConfig(contracts.CoreMIDIConfig{ClientName: "midiseq example"}),
	)
	if err != nil {
		log.Error("Failed to initialize sequencer", log.Field().Error("error", err))
		return
	}
	defer seq.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tempo := 96.0
	seq.Apply(contracts.SetCommand{Tempo: &tempo, Immediate: true})
	seq.Apply(contracts.ChainCommand{Slots: []contracts.ChainSlot{
		{Notes: []int{60, 63, 67, 70}, Loops: 2},
		{Notes: []int{58, -1, 62, 65}, Loops: 1},
	}})
	seq.Apply(contracts.StartCommand{})

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := seq.Status()
				log.Info("Sequencer status",
					log.Field().Int("slot", st.ChainIndex),
					log.Field().Int("step", st.StepIndex),
					log.Field().Int("loopsRemaining", st.LoopsRemaining))
			}
		}
	}()

	// Run returns on Ctrl+C after flushing pending note-offs.
	if err := seq.Run(ctx); err != nil {
		log.Error("Sequencer stopped", log.Field().Error("error", err))
	}
}
