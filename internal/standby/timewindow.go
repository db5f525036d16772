package standby

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

var ErrMalformedWindow = errors.New("malformed time window")

// Window is a preferred [Start, End) interval within a day.
type Window struct {
	Start scheduling.Clock `json:"start_time"`
	End   scheduling.Clock `json:"end_time"`
}

// FullDay is the window used when a patient has not narrowed their times.
var FullDay = Window{Start: scheduling.Midnight, End: scheduling.EndOfDay}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Overlaps reports whether the half-open slot interval [start, end) intersects w.
func (w Window) Overlaps(start, end scheduling.Clock) bool {
	return scheduling.Overlaps(start, end, w.Start, w.End)
}

// AnyOverlap reports whether [start, end) intersects at least one window.
func AnyOverlap(windows []Window, start, end scheduling.Clock) bool {
	for _, w := range windows {
		if w.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// ParseTimeWindows accepts a JSON list of {"start_time","end_time"} (or
// {"from","to"}) objects, or the text form "HH:MM-HH:MM,HH:MM-HH:MM".
// Empty input means the whole day. Segments that cannot be parsed are dropped
// and reported in the returned errors; the windows that did parse are kept.
func ParseTimeWindows(raw string) ([]Window, []error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Window{FullDay}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err == nil {
		return parseWindowList(items)
	}

	return parseWindowText(raw)
}

type rawWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	From      string `json:"from"`
	To        string `json:"to"`
}

func (r rawWindow) bounds() (string, string) {
	start, end := r.StartTime, r.EndTime
	if start == "" {
		start = r.From
	}
	if end == "" {
		end = r.To
	}
	return start, end
}

func parseWindowList(items []json.RawMessage) ([]Window, []error) {
	windows := make([]Window, 0, len(items))
	var errs []error

	for i, item := range items {
		var rw rawWindow
		if err := json.Unmarshal(item, &rw); err != nil {
			errs = append(errs, fmt.Errorf("%w: item %d: %v", ErrMalformedWindow, i, err))
			continue
		}
		start, end := rw.bounds()
		w, err := newWindow(start, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("item %d: %w", i, err))
			continue
		}
		windows = append(windows, w)
	}

	return windows, errs
}

func parseWindowText(raw string) ([]Window, []error) {
	var windows []Window
	var errs []error

	for _, seg := range strings.Split(raw, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		start, end, ok := strings.Cut(seg, "-")
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q has no '-'", ErrMalformedWindow, seg))
			continue
		}
		w, err := newWindow(start, end)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		windows = append(windows, w)
	}

	return windows, errs
}

func newWindow(start, end string) (Window, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return Window{}, fmt.Errorf("%w: missing start or end", ErrMalformedWindow)
	}
	s, err := scheduling.ParseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrMalformedWindow, err)
	}
	e, err := scheduling.ParseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrMalformedWindow, err)
	}
	if e <= s {
		return Window{}, fmt.Errorf("%w: %s-%s ends before it starts", ErrMalformedWindow, s, e)
	}
	return Window{Start: s, End: e}, nil
}
