package testenv

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/stretchr/testify/assert"
)

// BytesFromHex converts a hexadecimal string to a byte slice.
// Octets are written in upper case, as in wire dumps: "02000000 08000000".
// Other characters, including lower case letters, are stripped as comments.
func BytesFromHex(input string) []byte {
	s := strings.Map(func(ch rune) rune {
		if strings.ContainsRune("0123456789ABCDEF", ch) {
			return ch
		}
		return -1
	}, input)
	decoded, e := hex.DecodeString(s)
	if e != nil {
		panic(fmt.Errorf("hex.DecodeString error %w", e))
	}
	return decoded
}

// BytesEqual asserts that actual bytes equals expected bytes.
// It considers nil slice and zero-length slice to be the same.
func BytesEqual(a *assert.Assertions, expected, actual []byte, msgAndArgs ...any) bool {
	if len(expected) == 0 && len(actual) == 0 {
		return true
	}
	return a.Equal(expected, actual, msgAndArgs...)
}
