package localtime

import (
	"fmt"
	"strings"
)

const minutesPerHour = 60

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*minutesPerHour + c.Minute
}

// String renders "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock reads "HH:MM" tolerantly. Each field contributes its leading
// decimal digits; a field without any, or a missing field, counts as 0.
// An empty string is midnight.
func ParseClock(s string) Clock {
	h, m, _ := strings.Cut(strings.TrimSpace(s), ":")
	return Clock{Hour: leadingInt(h), Minute: leadingInt(m)}
}

// leadingInt parses an optional sign and the leading digits of s.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 6 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
