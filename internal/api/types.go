package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
)

const dateLayout = "2006-01-02"

type CreateSlotRequest struct {
	DoctorID       *uuid.UUID       `json:"doctor_id,omitempty"`
	Date           string           `json:"date"`
	StartTime      scheduling.Clock `json:"start_time"`
	EndTime        scheduling.Clock `json:"end_time"`
	Language       string           `json:"language,omitempty"`
	Specialization *string          `json:"specialization,omitempty"`
}

type SlotResponse struct {
	ID             uuid.UUID        `json:"id"`
	ClinicID       uuid.UUID        `json:"clinic_id"`
	DoctorID       *uuid.UUID       `json:"doctor_id,omitempty"`
	Date           string           `json:"date"`
	StartTime      scheduling.Clock `json:"start_time"`
	EndTime        scheduling.Clock `json:"end_time"`
	Language       string           `json:"language"`
	Specialization *string          `json:"specialization,omitempty"`
	Status         string           `json:"status"`
}

func toSlotResponse(s *scheduling.Slot) SlotResponse {
	return SlotResponse{
		ID:             s.ID,
		ClinicID:       s.ClinicID,
		DoctorID:       s.DoctorID,
		Date:           s.Date.Format(dateLayout),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		Language:       s.Language,
		Specialization: s.Specialization,
		Status:         string(s.Status),
	}
}

type BookingResponse struct {
	ID          uuid.UUID  `json:"id"`
	SlotID      uuid.UUID  `json:"slot_id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	ConfirmedAt time.Time  `json:"confirmed_at"`
	Cancelled   bool       `json:"cancelled"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func toBookingResponse(b *scheduling.Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		SlotID:      b.SlotID,
		PatientID:   b.PatientID,
		ConfirmedAt: b.ConfirmedAt,
		Cancelled:   b.Cancelled,
		CancelledAt: b.CancelledAt,
	}
}

func toSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, toSlotResponse(&slots[i]))
	}
	return out
}

func toBookingResponses(bookings []scheduling.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, toBookingResponse(&bookings[i]))
	}
	return out
}

// StandbyRequest accepts preferred_times either as the text form
// "08:00-12:00,14:00-16:00" or as a JSON list of windows.
type StandbyRequest struct {
	Enabled                bool            `json:"enabled"`
	PreferredLanguages     []string        `json:"preferred_languages"`
	PreferredDays          []string        `json:"preferred_days"`
	PreferredTimes         json.RawMessage `json:"preferred_times"`
	MaxNotificationsPerDay *int            `json:"max_notifications_per_day,omitempty"`
}

func (r StandbyRequest) rawTimes() string {
	raw := strings.TrimSpace(string(r.PreferredTimes))
	if raw == "" || raw == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(r.PreferredTimes, &text); err == nil {
		return text
	}
	return raw
}

type StandbyResponse struct {
	PatientID              uuid.UUID        `json:"patient_id"`
	Enabled                bool             `json:"enabled"`
	PreferredLanguages     []string         `json:"preferred_languages"`
	PreferredDays          []string         `json:"preferred_days"`
	PreferredTimes         string           `json:"preferred_times"`
	Windows                []standby.Window `json:"windows"`
	MaxNotificationsPerDay int              `json:"max_notifications_per_day"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

func toStandbyResponse(p *standby.Preference) StandbyResponse {
	windows, _ := standby.ParseTimeWindows(p.PreferredTimes)
	return StandbyResponse{
		PatientID:              p.PatientID,
		Enabled:                p.Enabled,
		PreferredLanguages:     nonNil(p.PreferredLanguages),
		PreferredDays:          nonNil(p.PreferredDays),
		PreferredTimes:         p.PreferredTimes,
		Windows:                windows,
		MaxNotificationsPerDay: p.MaxNotificationsPerDay,
		UpdatedAt:              p.UpdatedAt,
	}
}

type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DNDRequest struct {
	Enabled           bool        `json:"enabled"`
	Days              []string    `json:"dnd_days"`
	TimeRanges        []TimeRange `json:"dnd_time_ranges"`
	TemporarilyPaused bool        `json:"temporarily_paused"`
	PauseUntil        *time.Time  `json:"pause_until,omitempty"`
	StartDate         string      `json:"start_date,omitempty"`
	EndDate           string      `json:"end_date,omitempty"`
}

type DNDResponse struct {
	PatientID         uuid.UUID   `json:"patient_id"`
	Enabled           bool        `json:"enabled"`
	Days              []string    `json:"dnd_days"`
	TimeRanges        []TimeRange `json:"dnd_time_ranges"`
	TemporarilyPaused bool        `json:"temporarily_paused"`
	PauseUntil        *time.Time  `json:"pause_until,omitempty"`
	StartDate         string      `json:"start_date,omitempty"`
	EndDate           string      `json:"end_date,omitempty"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func toDNDResponse(d *standby.DND) DNDResponse {
	ranges, _ := standby.ParseDNDRanges(d.TimeRanges)
	out := make([]TimeRange, 0, len(ranges))
	for _, w := range ranges {
		out = append(out, TimeRange{From: w.Start.String(), To: w.End.String()})
	}
	return DNDResponse{
		PatientID:         d.PatientID,
		Enabled:           d.Enabled,
		Days:              nonNil(d.Days),
		TimeRanges:        out,
		TemporarilyPaused: d.TemporarilyPaused,
		PauseUntil:        d.PauseUntil,
		StartDate:         formatDate(d.StartDate),
		EndDate:           formatDate(d.EndDate),
		UpdatedAt:         d.UpdatedAt,
	}
}

type ConfirmResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
