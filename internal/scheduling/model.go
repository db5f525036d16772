package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotOpen      SlotStatus = "open"
	SlotBooked    SlotStatus = "booked"
	SlotCancelled SlotStatus = "cancelled"
	SlotExpired   SlotStatus = "expired"
)

const DefaultLanguage = "English"

type Slot struct {
	ID             uuid.UUID
	ClinicID       uuid.UUID
	DoctorID       *uuid.UUID
	Date           time.Time // UTC midnight
	StartTime      Clock
	EndTime        Clock
	Language       string
	Specialization *string
	Status         SlotStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s Slot) IsOpen() bool {
	return s.Status == SlotOpen
}

func (s Slot) Weekday() time.Weekday {
	return s.Date.Weekday()
}

// EndsAt is the absolute end of the slot, interpreting Date and EndTime as UTC.
func (s Slot) EndsAt() time.Time {
	return s.EndTime.On(s.Date.UTC())
}

// SlotFilter narrows the open-slot search. Empty fields match everything;
// comparisons ignore case.
type SlotFilter struct {
	Language string
	City     string
}

type NewSlot struct {
	ClinicID       uuid.UUID
	DoctorID       *uuid.UUID
	Date           time.Time
	StartTime      Clock
	EndTime        Clock
	Language       string
	Specialization *string
}

type Booking struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	SlotID      uuid.UUID
	ConfirmedAt time.Time
	Cancelled   bool
	CancelledAt *time.Time
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
