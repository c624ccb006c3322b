package xdp

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// API versions.
const (
	APIVersion1      uint32 = 1<<16 | 0
	APIVersionLatest        = APIVersion1
)

// CapabilitiesSize is the encoded size of Capabilities.
const CapabilitiesSize = 4 + 4 + 16

// Capabilities is the descriptor an interface presents at registration.
type Capabilities struct {
	Size       uint32    `json:"size"`
	APIVersion uint32    `json:"apiVersion"`
	InstanceID uuid.UUID `json:"instanceId"`
}

// InitializeCapabilities creates Capabilities for the given API version with a fresh InstanceID.
func InitializeCapabilities(apiVersion uint32) (caps Capabilities, e error) {
	caps.Size = CapabilitiesSize
	caps.APIVersion = apiVersion
	if caps.InstanceID, e = uuid.NewRandom(); e != nil {
		return Capabilities{}, fmt.Errorf("uuid.NewRandom: %w", e)
	}
	return caps, nil
}

// Validate checks that caps was initialized and its version does not exceed maxVersion.
func (caps Capabilities) Validate(maxVersion uint32) error {
	switch {
	case caps.Size != CapabilitiesSize:
		return fmt.Errorf("%w: capabilities size %d", StatusInvalidArgument, caps.Size)
	case caps.APIVersion == 0 || caps.APIVersion > maxVersion:
		return fmt.Errorf("%w: API version 0x%08X exceeds 0x%08X", StatusInvalidArgument, caps.APIVersion, maxVersion)
	case caps.InstanceID == uuid.Nil:
		return fmt.Errorf("%w: capabilities instance ID is nil", StatusInvalidArgument)
	}
	return nil
}

// MarshalBinary encodes Capabilities in little endian.
func (caps Capabilities) MarshalBinary() (wire []byte, e error) {
	wire = make([]byte, CapabilitiesSize)
	binary.LittleEndian.PutUint32(wire[0:], caps.Size)
	binary.LittleEndian.PutUint32(wire[4:], caps.APIVersion)
	copy(wire[8:], caps.InstanceID[:])
	return wire, nil
}

// UnmarshalBinary decodes Capabilities.
func (caps *Capabilities) UnmarshalBinary(wire []byte) error {
	if len(wire) < CapabilitiesSize {
		return BufferTooShortError{Needed: CapabilitiesSize}
	}
	caps.Size = binary.LittleEndian.Uint32(wire[0:])
	caps.APIVersion = binary.LittleEndian.Uint32(wire[4:])
	copy(caps.InstanceID[:], wire[8:CapabilitiesSize])
	return nil
}
