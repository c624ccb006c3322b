package xdp

import (
	"bytes"
	"fmt"
)

// RxAction is the outcome of RX inspection.
type RxAction uint8

// RxAction values.
const (
	// RxActionDrop drops the frame.
	RxActionDrop RxAction = iota
	// RxActionPass returns the frame to the interface for normal processing.
	RxActionPass
	// RxActionRedirect absorbs the frame into the platform's delivery list.
	RxActionRedirect
)

func (act RxAction) String() string {
	switch act {
	case RxActionDrop:
		return "drop"
	case RxActionPass:
		return "pass"
	case RxActionRedirect:
		return "redirect"
	}
	return fmt.Sprintf("RxAction(%d)", uint8(act))
}

// Program inspects an RX frame payload and returns an action.
// It runs in the bounded-latency context and must not retain frame.
type Program func(frame []byte) RxAction

// Simple programs.
var (
	PassAll     Program = func([]byte) RxAction { return RxActionPass }
	DropAll     Program = func([]byte) RxAction { return RxActionDrop }
	RedirectAll Program = func([]byte) RxAction { return RxActionRedirect }
)

// MatchProgram creates a Program that returns hit if frame&mask equals pattern&mask over the
// length of pattern, or miss otherwise.
// Frames shorter than pattern are a miss. Panics if mask and pattern lengths differ.
func MatchProgram(pattern, mask []byte, hit, miss RxAction) Program {
	if len(pattern) != len(mask) {
		logger.Panic("pattern and mask lengths differ")
	}
	pattern, mask = bytes.Clone(pattern), bytes.Clone(mask)
	return func(frame []byte) RxAction {
		if MaskedMatch(frame, pattern, mask) {
			return hit
		}
		return miss
	}
}

// MaskedMatch determines whether frame&mask equals pattern&mask over the length of pattern.
func MaskedMatch(frame, pattern, mask []byte) bool {
	if len(frame) < len(pattern) {
		return false
	}
	for i, p := range pattern {
		if frame[i]&mask[i] != p&mask[i] {
			return false
		}
	}
	return true
}
