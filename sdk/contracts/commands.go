package contracts

// CommandKind is the value of the "cmd" tag that discriminates control messages.
type CommandKind string

const (
	CmdSet   CommandKind = "set"
	CmdSeq   CommandKind = "seq"
	CmdChain CommandKind = "chain"
	CmdStart CommandKind = "start"
	CmdStop  CommandKind = "stop"
	CmdPanic CommandKind = "panic"
)

// Rest marks a silent slot in a pattern.
const Rest = -1

// Command is a decoded control-channel intent. The set of implementations is closed.
type Command interface {
	Kind() CommandKind
}

// SetCommand stages a parameter edit. Absent fields leave the parameter untouched.
type SetCommand struct {
	Tempo       *float64 `json:"tempo,omitempty"`
	Subdivision *int     `json:"subdivision,omitempty"`
	Gate        *float64 `json:"gate,omitempty"`
	Channel     *int     `json:"channel,omitempty"`
	Transpose   *int     `json:"transpose,omitempty"`
	Immediate   bool     `json:"immediate,omitempty"`
	SlaveMode   *bool    `json:"slave_mode,omitempty"`
}

// SeqCommand installs or stages a pattern; -1 is a rest.
type SeqCommand struct {
	Notes []int `json:"notes"`
}

// ChainSlot is one playlist entry; Loops <= 0 repeats forever.
type ChainSlot struct {
	Notes []int `json:"notes"`
	Loops int   `json:"loops"`
}

// ChainCommand replaces the playlist and activates slot Index (default 0).
type ChainCommand struct {
	Slots []ChainSlot `json:"slots"`
	Index *int        `json:"index,omitempty"`
}

type StartCommand struct{}

type StopCommand struct{}

type PanicCommand struct{}

func (SetCommand) Kind() CommandKind   { return CmdSet }
func (SeqCommand) Kind() CommandKind   { return CmdSeq }
func (ChainCommand) Kind() CommandKind { return CmdChain }
func (StartCommand) Kind() CommandKind { return CmdStart }
func (StopCommand) Kind() CommandKind  { return CmdStop }
func (PanicCommand) Kind() CommandKind { return CmdPanic }
