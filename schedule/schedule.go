package schedule

import (
	"strconv"
	"strings"
	"time"
)

// Shift tags. Employees carry exactly one of these strings.
const (
	Morning   = "6am to 2pm"
	Afternoon = "2pm to 10pm"
	Night     = "10pm to 6am"
)

var Tags = []string{Morning, Afternoon, Night}

func IsValidTag(tag string) bool {
	for _, t := range Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ParseHour converts "<hour><am|pm>" to an hour of day. 12am is 0 and 12pm is 12.
func ParseHour(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 3 {
		return 0, false
	}

	suffix := s[len(s)-2:]
	if suffix != "am" && suffix != "pm" {
		return 0, false
	}

	h, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-2]))
	if err != nil || h < 1 || h > 12 {
		return 0, false
	}

	if h == 12 {
		h = 0
	}
	if suffix == "pm" {
		h += 12
	}
	return h, true
}

// Bounds returns the start and end hour of a shift tag. A tag that does not
// parse yields the full day [0,24).
func Bounds(tag string) (start, end int) {
	parts := strings.Split(tag, " to ")
	if len(parts) != 2 {
		return 0, 24
	}

	s, ok := ParseHour(parts[0])
	if !ok {
		return 0, 24
	}
	e, ok := ParseHour(parts[1])
	if !ok {
		return 0, 24
	}
	return s, e
}

// IsWithin reports whether hour falls in [start,end). When start >= end the
// window wraps past midnight.
func IsWithin(start, end, hour int) bool {
	if start < end {
		return start <= hour && hour < end
	}
	return hour >= start || hour < end
}

// Contains reports whether the wall-clock hour of t is inside the shift.
func Contains(tag string, t time.Time) bool {
	start, end := Bounds(tag)
	return IsWithin(start, end, t.Hour())
}
