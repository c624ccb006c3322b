// Package nnduration provides non-negative duration types that unmarshal from an integer or a
// duration string.
package nnduration

import (
	"strconv"
	"strings"
	"time"
)

func parse(input string, unit time.Duration) (value uint64, e error) {
	if d, e := time.ParseDuration(input); e == nil {
		if d < 0 {
			return 0, strconv.ErrRange
		}
		return uint64(d / unit), nil
	}
	return strconv.ParseUint(input, 10, 64)
}

// Milliseconds is a duration in milliseconds.
type Milliseconds uint64

// UnmarshalJSON accepts an integer or a string recognized by time.ParseDuration.
func (d *Milliseconds) UnmarshalJSON(p []byte) error {
	value, e := parse(strings.Trim(string(p), `"`), time.Millisecond)
	if e != nil {
		return e
	}
	*d = Milliseconds(value)
	return nil
}

// UnmarshalText accepts an integer or a string recognized by time.ParseDuration.
func (d *Milliseconds) UnmarshalText(text []byte) error {
	return d.UnmarshalJSON(text)
}

// Duration converts to time.Duration.
func (d Milliseconds) Duration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// DurationOr converts to time.Duration, substituting dflt milliseconds for zero.
func (d Milliseconds) DurationOr(dflt Milliseconds) time.Duration {
	if d == 0 {
		return dflt.Duration()
	}
	return d.Duration()
}
