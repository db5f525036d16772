package standby

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

// ParseDNDRanges decodes the excluded time ranges of a DND record. A range
// that cannot be decoded is dropped and reported; it never blocks.
func ParseDNDRanges(raw string) ([]Window, []error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, []error{fmt.Errorf("%w: time ranges are not a JSON list: %v", ErrMalformedWindow, err)}
	}
	return parseWindowList(items)
}

// Blocks reports whether d suppresses notifications for slot at now, and why.
// The checks run in order: disabled, active pause, excluded weekday, date span
// (outside the span is allowed), then excluded time ranges.
func (d *DND) Blocks(slot scheduling.Slot, now time.Time) (Reason, []error) {
	if d == nil || !d.Enabled {
		return "", nil
	}

	if d.TemporarilyPaused && d.PauseUntil != nil && d.PauseUntil.After(now) {
		return SkipDNDPaused, nil
	}

	weekday := slot.Weekday().String()
	for _, day := range d.Days {
		if strings.EqualFold(strings.TrimSpace(day), weekday) {
			return SkipDNDDay, nil
		}
	}

	date := scheduling.DateOnly(slot.Date)
	if d.StartDate != nil && date.Before(scheduling.DateOnly(*d.StartDate)) {
		return "", nil
	}
	if d.EndDate != nil && date.After(scheduling.DateOnly(*d.EndDate)) {
		return "", nil
	}

	ranges, errs := ParseDNDRanges(d.TimeRanges)
	if AnyOverlap(ranges, slot.StartTime, slot.EndTime) {
		return SkipDNDTime, errs
	}
	return "", errs
}
