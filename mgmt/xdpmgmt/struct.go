package xdpmgmt

import (
	"fmt"

	"github.com/usnistgov/xdpfn/xdp"
)

type RegistrationInfo struct {
	IfIndex      uint32
	Capabilities xdp.Capabilities
	Open         bool
}

type QueueArg struct {
	IfIndex uint32
	QueueID uint32
}

// ProgramArg describes an RX program.
// Action is one of "pass", "drop", "redirect".
// If Pattern is non-empty, Action applies to frames matching Pattern under Mask and Miss applies
// to other frames.
type ProgramArg struct {
	Action  string
	Pattern []byte `json:",omitempty"`
	Mask    []byte `json:",omitempty"`
	Miss    string `json:",omitempty"`
}

func parseAction(s string) (xdp.RxAction, error) {
	switch s {
	case "", "pass":
		return xdp.RxActionPass, nil
	case "drop":
		return xdp.RxActionDrop, nil
	case "redirect":
		return xdp.RxActionRedirect, nil
	}
	return 0, fmt.Errorf("%w: unknown action %s", xdp.StatusInvalidArgument, s)
}

// Program builds the RX program.
func (arg ProgramArg) Program() (xdp.Program, error) {
	hit, e := parseAction(arg.Action)
	if e != nil {
		return nil, e
	}
	if len(arg.Pattern) == 0 {
		return func([]byte) xdp.RxAction { return hit }, nil
	}

	miss, e := parseAction(arg.Miss)
	if e != nil {
		return nil, e
	}
	mask := arg.Mask
	if len(mask) == 0 {
		mask = make([]byte, len(arg.Pattern))
		for i := range mask {
			mask[i] = 0xFF
		}
	}
	if len(mask) != len(arg.Pattern) {
		return nil, fmt.Errorf("%w: pattern and mask lengths differ", xdp.StatusInvalidArgument)
	}
	return xdp.MatchProgram(arg.Pattern, mask, hit, miss), nil
}

type BindArg struct {
	QueueArg
	Program  ProgramArg
	RingSize int `json:",omitempty"`
}

type RxQueueInfo struct {
	QueueID  uint32
	State    string
	Counters xdp.RxCounters
}

type TransmitArg struct {
	QueueArg
	Frame []byte
}

type TransmitReply struct {
	Token    uint64
	Counters xdp.TxCounters
}
