package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/db"
)

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrStatusConflict  = errors.New("slot status changed concurrently")
)

// Repository contains all DB interactions needed by the service. Every method takes the
// handle it runs on; a nil handle means the repository's own pool.
type Repository interface {
	InTx(ctx context.Context, fn func(q db.Querier) error) error

	GetSlotByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Slot, error)
	InsertSlot(ctx context.Context, q db.Querier, in NewSlot) (*Slot, error)

	// TransitionSlot moves a slot to `to` only if its current status is one of `from`.
	// It returns ErrStatusConflict when no row matched.
	TransitionSlot(ctx context.Context, q db.Querier, id uuid.UUID, to SlotStatus, from ...SlotStatus) (*Slot, error)

	InsertBooking(ctx context.Context, q db.Querier, slotID, patientID uuid.UUID) (*Booking, error)
	GetBookingByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Booking, error)
	CancelBooking(ctx context.Context, q db.Querier, id uuid.UUID) (*Booking, error)
	// CancelSlotBookings cancels every live booking of a slot and reports how many there were.
	CancelSlotBookings(ctx context.Context, q db.Querier, slotID uuid.UUID) (int64, error)

	// Listings
	ListOpenSlots(ctx context.Context, q db.Querier, f SlotFilter) ([]Slot, error)
	ListSlotsByClinic(ctx context.Context, q db.Querier, clinicID uuid.UUID) ([]Slot, error)
	ListBookingsByPatient(ctx context.Context, q db.Querier, patientID uuid.UUID) ([]Booking, error)
	ListBookingsByClinic(ctx context.Context, q db.Querier, clinicID uuid.UUID) ([]Booking, error)

	// Expiry worker
	ExpireOpenSlots(ctx context.Context, q db.Querier, now time.Time) ([]uuid.UUID, error)
}
