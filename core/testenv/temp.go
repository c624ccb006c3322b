package testenv

import (
	"path/filepath"
	"testing"
)

// TempName returns a filename in a temporary directory that is deleted during cleanup.
func TempName(t testing.TB, name ...string) (filename string) {
	filename = "temp"
	if len(name) > 0 {
		filename = name[0]
	}
	return filepath.Join(t.TempDir(), filename)
}
