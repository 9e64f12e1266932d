package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMayNotify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	tests := []struct {
		name     string
		last     *time.Time
		expected bool
	}{
		{"never notified", nil, true},
		{"just now", ago(0), false},
		{"inside window", ago(9*time.Minute + 59*time.Second), false},
		{"exactly window", ago(10 * time.Minute), true},
		{"past window", ago(time.Hour), true},
		{"clock skew future", ago(-time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MayNotify(tt.last, now, 10*time.Minute))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2024-05-01T12:00:00.000+00:00", true},
		{"2024-05-01T12:00:00Z", true},
		{"2024-05-01T12:00:00.123456789Z", true},
		{"2024-05-01 12:00:00", true},
		{"", false},
		{"yesterday", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseTimestamp(tt.in)
			if tt.valid {
				require.NotNil(t, got)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
