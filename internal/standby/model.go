package standby

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxNotificationsPerDay applies when a preference is created without an explicit cap.
const DefaultMaxNotificationsPerDay = 5

// Preference is a patient's standby subscription.
type Preference struct {
	ID                     uuid.UUID
	PatientID              uuid.UUID
	Enabled                bool
	PreferredLanguages     []string // empty means any
	PreferredDays          []string // weekday names, empty means any
	PreferredTimes         string   // raw windows, see ParseTimeWindows
	MaxNotificationsPerDay int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DND is a patient's do-not-disturb configuration.
type DND struct {
	ID                uuid.UUID
	PatientID         uuid.UUID
	Enabled           bool
	Days              []string // excluded weekday names
	TimeRanges        string   // raw JSON list of {"from","to"} objects
	TemporarilyPaused bool
	PauseUntil        *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ConfirmationState string

const (
	ConfirmationPending ConfirmationState = "pending"
	ConfirmationUsed    ConfirmationState = "used"
	ConfirmationExpired ConfirmationState = "expired"
)

// Confirmation is a single-use ticket allowing one patient to claim one slot.
type Confirmation struct {
	Token     string
	SlotID    uuid.UUID
	PatientID uuid.UUID
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// State derives the token state at now. Expiry is computed, never stored.
func (c Confirmation) State(now time.Time) ConfirmationState {
	switch {
	case c.Used:
		return ConfirmationUsed
	case now.After(c.ExpiresAt):
		return ConfirmationExpired
	default:
		return ConfirmationPending
	}
}
