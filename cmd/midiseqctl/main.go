// Command midiseqctl sends one control command to a running midiseqd.
//
//	midiseqctl start
//	midiseqctl set -tempo 128 -gate 40 -immediate
//	midiseqctl seq 60 -1 64 67
//	midiseqctl chain '{"slots":[{"notes":[60,62],"loops":2},{"notes":[64]}]}'
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/leandrodaf/midiseq/internal/config"
	"github.com/leandrodaf/midiseq/internal/control"
	"github.com/leandrodaf/midiseq/internal/logger"
	"github.com/leandrodaf/midiseq/sdk/contracts"
)

func main() {
	var (
		socket = flag.String("socket", "", "control socket path (default $"+config.EnvSocket+" or "+control.DefaultSocketPath+")")
		broker = flag.String("mqtt", "", "publish to this MQTT broker instead of the socket")
		topic  = flag.String("topic", control.DefaultTopic, "MQTT control topic")
	)
	flag.Usage = usage
	flag.Parse()

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(2)
	}

	if *broker != "" {
		err = publish(*broker, *topic, cmd)
	} else {
		err = control.Send(socketPath(*socket), cmd)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: midiseqctl [-socket path | -mqtt broker] start|stop|panic|set|seq|chain [args]")
	flag.PrintDefaults()
}

func socketPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := os.LookupEnv(config.EnvSocket); ok && v != "" {
		return v
	}
	return control.DefaultSocketPath
}

func publish(broker, topic string, cmd contracts.Command) error {
	log := logger.NewZapLogger()
	log.SetLevel(contracts.WarnLevel)

	m, err := control.DialMQTT(contracts.MQTTConfig{Broker: broker, Topic: topic, QoS: 1}, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Publish(cmd)
}

var errUsage = errors.New("missing command")

func parseCommand(args []string) (contracts.Command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	name, rest := args[0], args[1:]

	switch contracts.CommandKind(name) {
	case contracts.CmdStart:
		return contracts.StartCommand{}, nil
	case contracts.CmdStop:
		return contracts.StopCommand{}, nil
	case contracts.CmdPanic:
		return contracts.PanicCommand{}, nil
	case contracts.CmdSeq:
		notes := make([]int, 0, len(rest))
		for _, a := range rest {
			n, err := strconv.Atoi(a)
			if err != nil {
				return nil, fmt.Errorf("seq: %q is not a note number", a)
			}
			notes = append(notes, n)
		}
		return contracts.SeqCommand{Notes: notes}, nil
	case contracts.CmdChain:
		if len(rest) != 1 {
			return nil, fmt.Errorf("chain: expected one JSON argument")
		}
		var c contracts.ChainCommand
		if err := json.Unmarshal([]byte(rest[0]), &c); err != nil {
			return nil, fmt.Errorf("chain: %w", err)
		}
		return c, nil
	case contracts.CmdSet:
		return parseSet(rest)
	}
	return nil, fmt.Errorf("unknown command %q", name)
}

func parseSet(args []string) (contracts.Command, error) {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	var (
		tempo     = fs.Float64("tempo", 0, "tempo in BPM")
		sub       = fs.Int("subdivision", 0, "steps per whole note")
		gate      = fs.Float64("gate", 0, "gate percent")
		channel   = fs.Int("channel", 0, "MIDI channel 1..16")
		transpose = fs.Int("transpose", 0, "semitones")
		immediate = fs.Bool("immediate", false, "commit without debounce")
		slave     = fs.Bool("slave", false, "follow the external clock")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cmd := contracts.SetCommand{Immediate: *immediate}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tempo":
			cmd.Tempo = tempo
		case "subdivision":
			cmd.Subdivision = sub
		case "gate":
			cmd.Gate = gate
		case "channel":
			cmd.Channel = channel
		case "transpose":
			cmd.Transpose = transpose
		case "slave":
			cmd.SlaveMode = slave
		}
	})
	return cmd, nil
}
