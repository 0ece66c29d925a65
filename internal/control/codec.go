// Package control decodes control-channel messages and serves them from a
// unix datagram socket or an MQTT topic. No replies are ever sent.
package control

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Decode errors. Listeners drop the message on either.
var (
	ErrMalformedCommand = errors.New("malformed control message")
	ErrUnknownCommand   = errors.New("unknown control command")
)

type envelope struct {
	Cmd contracts.CommandKind `json:"cmd"`
}

// Decode parses one JSON control message discriminated by its "cmd" field.
func Decode(data []byte) (contracts.Command, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}

	var (
		cmd contracts.Command
		err error
	)
	switch env.Cmd {
	case contracts.CmdSet:
		var c contracts.SetCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case contracts.CmdSeq:
		var c contracts.SeqCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case contracts.CmdChain:
		var c contracts.ChainCommand
		err = json.Unmarshal(data, &c)
		cmd = c
	case contracts.CmdStart:
		cmd = contracts.StartCommand{}
	case contracts.CmdStop:
		cmd = contracts.StopCommand{}
	case contracts.CmdPanic:
		cmd = contracts.PanicCommand{}
	case "":
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformedCommand)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedCommand, env.Cmd, err)
	}
	return cmd, nil
}

// Encode renders cmd in the wire format accepted by Decode.
func Encode(cmd contracts.Command) ([]byte, error) {
	switch c := cmd.(type) {
	case contracts.SetCommand:
		return json.Marshal(struct {
			Cmd contracts.CommandKind `json:"cmd"`
			contracts.SetCommand
		}{c.Kind(), c})
	case contracts.SeqCommand:
		return json.Marshal(struct {
			Cmd contracts.CommandKind `json:"cmd"`
			contracts.SeqCommand
		}{c.Kind(), c})
	case contracts.ChainCommand:
		return json.Marshal(struct {
			Cmd contracts.CommandKind `json:"cmd"`
			contracts.ChainCommand
		}{c.Kind(), c})
	case nil:
		return nil, fmt.Errorf("%w: nil command", ErrUnknownCommand)
	default:
		return json.Marshal(envelope{Cmd: c.Kind()})
	}
}

// Handler receives every successfully decoded command.
type Handler func(contracts.Command)

// dispatch decodes one payload and hands it to handle. Bad payloads are
// logged at Debug and dropped; empty reads are ignored.
func dispatch(data []byte, handle Handler, logger contracts.Logger, source string) {
	if len(data) == 0 {
		return
	}
	cmd, err := Decode(data)
	if err != nil {
		logger.Debug("dropping control message",
			logger.Field().String("source", source),
			logger.Field().Error("error", err))
		return
	}
	handle(cmd)
}
