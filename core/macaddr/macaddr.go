// Package macaddr provides MAC-48 address helpers.
package macaddr

import (
	"bytes"
	"errors"
	"math/rand"
	"net"
)

// Len is the length of a MAC-48 address.
const Len = 6

// ErrListLength indicates an encoded address list whose length is not a multiple of Len.
var ErrListLength = errors.New("address list length is not a multiple of 6")

// Equal determines whether two HardwareAddrs are the same.
func Equal(a, b net.HardwareAddr) bool {
	return bytes.Equal([]byte(a), []byte(b))
}

// IsValid determines whether the HardwareAddr is a MAC-48 address.
func IsValid(a net.HardwareAddr) bool {
	return len(a) == Len
}

// IsUnicast determines whether the HardwareAddr is a non-zero unicast MAC-48 address.
func IsUnicast(a net.HardwareAddr) bool {
	return IsValid(a) && (a[0]&0x01) == 0 && (a[0]|a[1]|a[2]|a[3]|a[4]|a[5]) != 0
}

// IsMulticast determines whether the HardwareAddr is a multicast MAC-48 address.
func IsMulticast(a net.HardwareAddr) bool {
	return IsValid(a) && (a[0]&0x01) != 0
}

// MakeRandom generates a random locally administered MAC-48 address.
func MakeRandom(multicast bool) (a net.HardwareAddr) {
	a = make(net.HardwareAddr, Len)
	rand.Read([]byte(a))
	a[0] |= 0x02
	if multicast {
		a[0] |= 0x01
	} else {
		a[0] &^= 0x01
	}
	return a
}

// DecodeList splits a packed address list, as carried in an 802.3 multicast list request.
func DecodeList(wire []byte) (list []net.HardwareAddr, e error) {
	if len(wire)%Len != 0 {
		return nil, ErrListLength
	}
	for off := 0; off < len(wire); off += Len {
		list = append(list, net.HardwareAddr(bytes.Clone(wire[off:off+Len])))
	}
	return list, nil
}

// EncodeList packs an address list.
// Addresses that are not MAC-48 are skipped.
func EncodeList(list []net.HardwareAddr) (wire []byte) {
	wire = make([]byte, 0, len(list)*Len)
	for _, a := range list {
		if IsValid(a) {
			wire = append(wire, a...)
		}
	}
	return wire
}
