package xdp

import (
	"errors"
	"fmt"
)

// Status is a result code shared by the platform, interfaces, and the control channel.
// Every non-success Status is an error.
type Status uint32

// Status values.
// StatusPending is not a failure: it means the operation will complete later.
const (
	StatusSuccess            Status = 0
	StatusPending            Status = 0x00000103
	StatusInvalidArgument    Status = 0xC000000D
	StatusUnsupported        Status = 0xC00000BB
	StatusResourceExhausted  Status = 0xC000009A
	StatusAlreadyRegistered  Status = 0xC0000035
	StatusNotFound           Status = 0xC0000225
	StatusBufferTooShort     Status = 0xC0000023
	StatusInvalidDeviceState Status = 0xC0000184
	StatusNotSupported       Status = 0xC00000BC
	StatusInvalidLength      Status = 0xC0000004
	StatusInternalError      Status = 0xC00000E5
)

var statusStrings = map[Status]string{
	StatusSuccess:            "success",
	StatusPending:            "pending",
	StatusInvalidArgument:    "invalid argument",
	StatusUnsupported:        "unsupported",
	StatusResourceExhausted:  "resource exhausted",
	StatusAlreadyRegistered:  "already registered",
	StatusNotFound:           "not found",
	StatusBufferTooShort:     "buffer too short",
	StatusInvalidDeviceState: "invalid device state",
	StatusNotSupported:       "not supported",
	StatusInvalidLength:      "invalid length",
	StatusInternalError:      "internal error",
}

func (st Status) String() string {
	if s, ok := statusStrings[st]; ok {
		return s
	}
	return fmt.Sprintf("status(0x%08X)", uint32(st))
}

// Error implements error interface.
func (st Status) Error() string {
	return st.String()
}

// Err converts Status to error, returning nil for StatusSuccess.
func (st Status) Err() error {
	if st == StatusSuccess {
		return nil
	}
	return st
}

// StatusOf extracts Status from an error.
// nil maps to StatusSuccess. An error without a Status in its chain maps to StatusInternalError.
func StatusOf(e error) Status {
	if e == nil {
		return StatusSuccess
	}
	var st Status
	if errors.As(e, &st) {
		return st
	}
	return StatusInternalError
}

// BufferTooShortError reports the buffer size required for an operation to succeed.
// It unwraps to StatusBufferTooShort.
type BufferTooShortError struct {
	Needed int
}

func (e BufferTooShortError) Error() string {
	return fmt.Sprintf("buffer too short, %d octets needed", e.Needed)
}

// Unwrap returns StatusBufferTooShort.
func (BufferTooShortError) Unwrap() error {
	return StatusBufferTooShort
}

// BytesNeeded extracts the required size from a BufferTooShortError in the chain.
func BytesNeeded(e error) (n int, ok bool) {
	var btse BufferTooShortError
	if errors.As(e, &btse) {
		return btse.Needed, true
	}
	return 0, false
}
