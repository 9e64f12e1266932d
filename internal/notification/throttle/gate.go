// Package throttle enforces the minimum interval between two
// notifications for the same record.
package throttle

import (
	"strings"
	"time"
)

// DefaultWindow applies when no window is configured.
const DefaultWindow = 10 * time.Minute

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp returns nil for empty or unparseable input.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// MayNotify is false only when lastNotifiedAt is known and less than window
// has elapsed since it.
func MayNotify(lastNotifiedAt *time.Time, now time.Time, window time.Duration) bool {
	if lastNotifiedAt == nil {
		return true
	}
	return now.Sub(*lastNotifiedAt) >= window
}
