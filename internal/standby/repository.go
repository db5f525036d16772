package standby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
)

var (
	ErrPreferenceNotFound  = errors.New("standby preference not found")
	ErrDNDNotFound         = errors.New("dnd preference not found")
	ErrConfirmationInvalid = errors.New("confirmation token is invalid or expired")
)

// PreferenceStore persists the 1:1 standby and DND records of a patient.
type PreferenceStore interface {
	ListEnabledPreferences(ctx context.Context) ([]Preference, error)
	GetPreferenceByPatient(ctx context.Context, patientID uuid.UUID) (*Preference, error)
	UpsertPreference(ctx context.Context, p Preference) (*Preference, error)
	GetDNDByPatient(ctx context.Context, patientID uuid.UUID) (*DND, error)
	UpsertDND(ctx context.Context, d DND) (*DND, error)
}

// ConfirmationStore persists and consumes confirmation tokens.
type ConfirmationStore interface {
	InTx(ctx context.Context, fn func(q db.Querier) error) error
	InsertConfirmation(ctx context.Context, c Confirmation) error
	// ConsumeConfirmation marks an unused, unexpired token used on q and
	// returns it, or ErrConfirmationInvalid.
	ConsumeConfirmation(ctx context.Context, q db.Querier, token string, now time.Time) (*Confirmation, error)
	ListConfirmationsBySlot(ctx context.Context, slotID uuid.UUID) ([]Confirmation, error)
	PurgeConfirmations(ctx context.Context, expiredBefore time.Time) (int64, error)
}

type PatientLookup interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*account.Patient, error)
}

// SlotClaimer flips an open slot to booked on q, failing with
// scheduling.ErrSlotNotOpen when it is no longer open.
type SlotClaimer interface {
	ClaimSlot(ctx context.Context, q db.Querier, slotID, patientID uuid.UUID) (*scheduling.Booking, error)
}

// Notifier delivers a message to a contact address.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DailyCounter counts notifications per patient per calendar day. Increment
// reserves a unit; Release returns one that did not end in a delivery.
type DailyCounter interface {
	Increment(ctx context.Context, patientID uuid.UUID, day time.Time) (int64, error)
	Release(ctx context.Context, patientID uuid.UUID, day time.Time) error
}

type TokenIssuer interface {
	Issue(ctx context.Context, slotID, patientID uuid.UUID) (*Confirmation, error)
}
