package standby

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

// 2026-06-06 is a Saturday.
var saturday = time.Date(2026, 6, 6, 0, 0, 0, 0, time.UTC)

func slotOn(day time.Time, start, end string) scheduling.Slot {
	return scheduling.Slot{
		Date:      day,
		StartTime: clock(start),
		EndTime:   clock(end),
		Language:  "English",
		Status:    scheduling.SlotOpen,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestDNDDisabledNeverBlocks(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	d := &DND{
		Enabled:           false,
		Days:              []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		TimeRanges:        `[{"from":"00:00","to":"23:59"}]`,
		TemporarilyPaused: true,
		PauseUntil:        timePtr(now.Add(24 * time.Hour)),
	}

	for i := 0; i < 7; i++ {
		reason, errs := d.Blocks(slotOn(saturday.AddDate(0, 0, i), "09:00", "09:30"), now)
		assert.Empty(t, reason)
		assert.Empty(t, errs)
	}

	var none *DND
	reason, _ := none.Blocks(slotOn(saturday, "09:00", "09:30"), now)
	assert.Empty(t, reason)
}

func TestDNDPauseDominates(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	d := &DND{
		Enabled:           true,
		TemporarilyPaused: true,
		PauseUntil:        timePtr(now.Add(time.Hour)),
		// Outside the date span, which would otherwise allow the slot.
		StartDate: timePtr(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	tuesday := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	reason, _ := d.Blocks(slotOn(tuesday, "15:00", "15:30"), now)
	assert.Equal(t, SkipDNDPaused, reason)

	d.PauseUntil = timePtr(now.Add(-time.Minute))
	reason, _ = d.Blocks(slotOn(tuesday, "15:00", "15:30"), now)
	assert.Empty(t, reason, "an expired pause no longer blocks")

	d.PauseUntil = nil
	reason, _ = d.Blocks(slotOn(tuesday, "15:00", "15:30"), now)
	assert.Empty(t, reason, "a pause without an end does not block")
}

func TestDNDExcludedWeekday(t *testing.T) {
	d := &DND{Enabled: true, Days: []string{"saturday", " Sunday "}}

	reason, _ := d.Blocks(slotOn(saturday, "09:00", "09:30"), time.Now())
	assert.Equal(t, SkipDNDDay, reason)

	reason, _ = d.Blocks(slotOn(saturday.AddDate(0, 0, 2), "09:00", "09:30"), time.Now())
	assert.Empty(t, reason)
}

func TestDNDOutsideDateSpanIsAllowed(t *testing.T) {
	d := &DND{
		Enabled:    true,
		TimeRanges: `[{"from":"08:00","to":"18:00"}]`,
		StartDate:  timePtr(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:    timePtr(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)),
	}

	before := slotOn(time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC), "09:00", "09:30")
	reason, _ := d.Blocks(before, time.Now())
	assert.Empty(t, reason, "a slot before start_date is allowed even inside an excluded range")

	after := slotOn(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), "09:00", "09:30")
	reason, _ = d.Blocks(after, time.Now())
	assert.Empty(t, reason, "a slot after end_date is allowed")

	inside := slotOn(time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC), "09:00", "09:30")
	reason, _ = d.Blocks(inside, time.Now())
	assert.Equal(t, SkipDNDTime, reason)

	lastDay := slotOn(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), "09:00", "09:30")
	reason, _ = d.Blocks(lastDay, time.Now())
	assert.Equal(t, SkipDNDTime, reason, "bounds are inclusive")
}

func TestDNDTimeRangeOverlap(t *testing.T) {
	d := &DND{Enabled: true, TimeRanges: `[{"start_time":"12:00","end_time":"13:00"}]`}

	reason, _ := d.Blocks(slotOn(saturday, "12:30", "13:30"), time.Now())
	assert.Equal(t, SkipDNDTime, reason)

	reason, _ = d.Blocks(slotOn(saturday, "13:00", "13:30"), time.Now())
	assert.Empty(t, reason)
}

func TestDNDMalformedRangesDoNotBlock(t *testing.T) {
	d := &DND{Enabled: true, TimeRanges: `[{"from":"xx","to":"10:00"},{"from":"09:15","to":"10:00"}]`}

	reason, errs := d.Blocks(slotOn(saturday, "09:00", "09:30"), time.Now())
	assert.Equal(t, SkipDNDTime, reason, "the valid range still applies")
	require.Len(t, errs, 1)

	d.TimeRanges = `[{"from":"xx","to":"10:00"}]`
	reason, errs = d.Blocks(slotOn(saturday, "09:00", "09:30"), time.Now())
	assert.Empty(t, reason)
	assert.Len(t, errs, 1)

	d.TimeRanges = `09:00-10:00`
	reason, errs = d.Blocks(slotOn(saturday, "09:00", "09:30"), time.Now())
	assert.Empty(t, reason)
	assert.Len(t, errs, 1)
}
