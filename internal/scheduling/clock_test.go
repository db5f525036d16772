package scheduling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", Midnight, false},
		{"09:30", NewClock(9, 30), false},
		{"9:05", NewClock(9, 5), false},
		{" 23:59 ", EndOfDay, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockStringAndJSON(t *testing.T) {
	c := NewClock(8, 5)
	assert.Equal(t, "08:05", c.String())

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `"08:05"`, string(data))

	var back Clock
	require.NoError(t, json.Unmarshal([]byte(`"17:45"`), &back))
	assert.Equal(t, NewClock(17, 45), back)

	assert.Error(t, json.Unmarshal([]byte(`"7pm"`), &back))
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	nine, nineThirty, ten := NewClock(9, 0), NewClock(9, 30), NewClock(10, 0)

	assert.True(t, Overlaps(nine, ten, nineThirty, ten))
	assert.False(t, Overlaps(nine, nineThirty, nineThirty, ten), "touching intervals do not overlap")
	assert.False(t, Overlaps(nineThirty, ten, nine, nineThirty))
}

func TestSlotEndsAt(t *testing.T) {
	s := Slot{Date: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), EndTime: NewClock(10, 15)}
	assert.Equal(t, time.Date(2026, 5, 2, 10, 15, 0, 0, time.UTC), s.EndsAt())
	assert.Equal(t, time.Saturday, s.Weekday())
}

func TestPGTimeRoundTrip(t *testing.T) {
	c := NewClock(14, 45)
	assert.Equal(t, c, FromPGTime(ToPGTime(c)))
}
