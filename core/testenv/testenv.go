// Package testenv holds helpers shared by xdpfn tests.
//
// Test packages declare the assertion pair once, in test_test.go:
//
//	var makeAR = testenv.MakeAR
//
// Control-device and OID tests compare against wire dumps written with BytesFromHex.
package testenv

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MakeAR returns assert and require objects bound to t.
func MakeAR(t require.TestingT) (*assert.Assertions, *require.Assertions) {
	return assert.New(t), require.New(t)
}
