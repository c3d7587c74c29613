package annotation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"annotcore/internal/corpuserr"
)

// RealTime is an exact timestamp in nanoseconds. Boundary comparisons in
// tiers rely on exact equality, so times are never held as floating point.
type RealTime int64

const (
	Nanosecond  RealTime = 1
	Microsecond          = 1000 * Nanosecond
	Millisecond          = 1000 * Microsecond
	Second               = 1000 * Millisecond
)

// Seconds converts a floating point number of seconds, rounding to the
// nearest nanosecond.
func Seconds(s float64) RealTime {
	return RealTime(math.Round(s * float64(Second)))
}

// FromDuration converts a time.Duration.
func FromDuration(d time.Duration) RealTime {
	return RealTime(d.Nanoseconds())
}

// ParseRealTime parses decimal seconds ("12.5", "0.000000001") without going
// through floating point.
func ParseRealTime(value string) (RealTime, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, corpuserr.Validation("time", "empty value")
	}
	negative := false
	if strings.HasPrefix(value, "-") {
		negative = true
		value = value[1:]
	}
	whole, frac, _ := strings.Cut(value, ".")
	if (whole == "" && frac == "") || strings.ContainsAny(whole+frac, "+-") {
		return 0, corpuserr.Validation("time", "invalid seconds %q", value)
	}
	if whole == "" {
		whole = "0"
	}
	secs, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, corpuserr.Validation("time", "invalid seconds %q", value)
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	var nanos int64
	if frac != "" {
		padded := frac + strings.Repeat("0", 9-len(frac))
		nanos, err = strconv.ParseInt(padded, 10, 64)
		if err != nil {
			return 0, corpuserr.Validation("time", "invalid fraction %q", value)
		}
	}
	total := RealTime(secs)*Second + RealTime(nanos)
	if negative {
		total = -total
	}
	return total, nil
}

// Nanoseconds returns the raw value.
func (t RealTime) Nanoseconds() int64 { return int64(t) }

// Float returns the value in seconds. Use only for display and statistics.
func (t RealTime) Float() float64 { return float64(t) / float64(Second) }

// Duration converts to time.Duration.
func (t RealTime) Duration() time.Duration { return time.Duration(t) }

// Abs returns the absolute value.
func (t RealTime) Abs() RealTime {
	if t < 0 {
		return -t
	}
	return t
}

// String formats the time as seconds with trailing zeros removed.
func (t RealTime) String() string {
	sign := ""
	v := int64(t)
	if v < 0 {
		sign = "-"
		v = -v
	}
	secs := v / int64(Second)
	nanos := v % int64(Second)
	if nanos == 0 {
		return fmt.Sprintf("%s%d", sign, secs)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
	return fmt.Sprintf("%s%d.%s", sign, secs, frac)
}

// MinTime returns the earlier of two times.
func MinTime(a, b RealTime) RealTime {
	if a < b {
		return a
	}
	return b
}

// MaxTime returns the later of two times.
func MaxTime(a, b RealTime) RealTime {
	if a > b {
		return a
	}
	return b
}
