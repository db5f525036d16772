package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/account"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/events"
	redisclient "github.com/hackgods/standby-scheduling/internal/redis"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

var (
	ErrSlotNotOpen      = errors.New("slot is not open")
	ErrSlotBeingBooked  = errors.New("slot is currently being booked, please retry")
	ErrNotSlotOwner     = errors.New("slot belongs to another clinic")
	ErrNotBookingOwner  = errors.New("booking belongs to another patient")
	ErrBookingCancelled = errors.New("booking is already cancelled")
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrSlotHasBooking   = errors.New("slot has an active booking")
)

// SlotOpenedFunc is invoked synchronously whenever a slot becomes (or stays) open.
type SlotOpenedFunc func(ctx context.Context, slot Slot)

// ClinicLookup resolves the owning clinic of a new slot.
type ClinicLookup interface {
	GetClinicByID(ctx context.Context, id uuid.UUID) (*account.Clinic, error)
}

type Service struct {
	repo    Repository
	clinics ClinicLookup
	locker  redisclient.Locker
	events  *events.Recorder
	logger  *logging.Logger

	onOpened SlotOpenedFunc
}

func NewService(repo Repository, clinics ClinicLookup, locker redisclient.Locker, rec *events.Recorder, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:    repo,
		clinics: clinics,
		locker:  locker,
		events:  rec,
		logger:  logger,
	}
}

// OnSlotOpened registers the hook run after a slot is created or reopened.
func (s *Service) OnSlotOpened(fn SlotOpenedFunc) {
	s.onOpened = fn
}

// CreateSlot inserts an open slot and triggers the slot-opened hook.
func (s *Service) CreateSlot(ctx context.Context, in NewSlot) (*Slot, error) {
	if err := validateNewSlot(&in); err != nil {
		return nil, err
	}

	if s.clinics != nil {
		if _, err := s.clinics.GetClinicByID(ctx, in.ClinicID); err != nil {
			if errors.Is(err, account.ErrClinicNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load clinic: %w", err)
		}
	}

	created, err := s.repo.InsertSlot(ctx, nil, in)
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	s.events.Record(ctx, events.SlotOpened, &created.ID, nil, map[string]any{
		"clinic_id": created.ClinicID.String(),
		"date":      created.Date.Format("2006-01-02"),
		"start":     created.StartTime.String(),
		"end":       created.EndTime.String(),
	})

	s.notifyOpened(ctx, *created)
	return created, nil
}

// ReopenSlot puts a cancelled, expired or already open slot back to open and
// triggers the slot-opened hook again. Booked slots are freed through CancelBooking.
func (s *Service) ReopenSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*Slot, error) {
	slot, err := s.ownedSlot(ctx, clinicID, slotID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.TransitionSlot(ctx, nil, slot.ID, SlotOpen, SlotOpen, SlotCancelled, SlotExpired)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrSlotHasBooking
		}
		return nil, fmt.Errorf("reopen slot: %w", err)
	}
	s.events.Record(ctx, events.SlotReopened, &updated.ID, nil, map[string]any{
		"previous_status": string(slot.Status),
	})

	s.notifyOpened(ctx, *updated)
	return updated, nil
}

// CancelSlot marks a clinic's slot cancelled together with any live booking
// on it, so a later reopen never offers a slot that is still held.
func (s *Service) CancelSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*Slot, error) {
	slot, err := s.ownedSlot(ctx, clinicID, slotID)
	if err != nil {
		return nil, err
	}

	var updated *Slot
	var dropped int64
	err = s.repo.InTx(ctx, func(q db.Querier) error {
		cancelled, err := s.repo.TransitionSlot(ctx, q, slot.ID, SlotCancelled, SlotOpen, SlotBooked, SlotExpired, SlotCancelled)
		if err != nil {
			return fmt.Errorf("cancel slot: %w", err)
		}
		n, err := s.repo.CancelSlotBookings(ctx, q, slot.ID)
		if err != nil {
			return fmt.Errorf("cancel slot bookings: %w", err)
		}
		updated, dropped = cancelled, n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Record(ctx, events.SlotCancelled, &updated.ID, nil, map[string]any{
		"previous_status":    string(slot.Status),
		"cancelled_bookings": dropped,
	})
	return updated, nil
}

// BookSlot books an open slot directly for a patient.
// A per-slot lock keeps concurrent requests out of the critical section; the
// conditional status update inside ClaimSlot remains the source of truth.
func (s *Service) BookSlot(ctx context.Context, patientID, slotID uuid.UUID) (*Booking, error) {
	slot, err := s.repo.GetSlotByID(ctx, nil, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if !slot.IsOpen() {
		return nil, ErrSlotNotOpen
	}

	var booking *Booking
	book := func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(q db.Querier) error {
			b, err := s.ClaimSlot(lockCtx, q, slotID, patientID)
			if err != nil {
				return err
			}
			booking = b
			return nil
		})
	}

	if s.locker == nil {
		err = book(ctx)
	} else {
		err = s.locker.WithSlotLock(ctx, slotID, book)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.events.Record(ctx, events.SlotBooked, &slotID, &patientID, map[string]any{
		"booking_id": booking.ID.String(),
	})
	return booking, nil
}

// ClaimSlot atomically flips an open slot to booked and records the booking on q.
// It returns ErrSlotNotOpen when another claim won.
func (s *Service) ClaimSlot(ctx context.Context, q db.Querier, slotID, patientID uuid.UUID) (*Booking, error) {
	if _, err := s.repo.TransitionSlot(ctx, q, slotID, SlotBooked, SlotOpen); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrSlotNotOpen
		}
		return nil, fmt.Errorf("mark slot booked: %w", err)
	}

	booking, err := s.repo.InsertBooking(ctx, q, slotID, patientID)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return booking, nil
}

// CancelBooking cancels a patient's booking, reopens the slot and triggers the slot-opened hook.
func (s *Service) CancelBooking(ctx context.Context, patientID, bookingID uuid.UUID) (*Slot, error) {
	existing, err := s.repo.GetBookingByID(ctx, nil, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if existing.PatientID != patientID {
		return nil, ErrNotBookingOwner
	}
	if existing.Cancelled {
		return nil, ErrBookingCancelled
	}

	var reopened *Slot
	err = s.repo.InTx(ctx, func(q db.Querier) error {
		if _, err := s.repo.CancelBooking(ctx, q, bookingID); err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return ErrBookingCancelled
			}
			return fmt.Errorf("cancel booking: %w", err)
		}
		slot, err := s.repo.TransitionSlot(ctx, q, existing.SlotID, SlotOpen, SlotBooked)
		if err != nil {
			return fmt.Errorf("reopen slot: %w", err)
		}
		reopened = slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Record(ctx, events.BookingCancelled, &reopened.ID, &patientID, map[string]any{
		"booking_id": bookingID.String(),
	})

	s.notifyOpened(ctx, *reopened)
	return reopened, nil
}

// ListOpenSlots returns open slots matching f, earliest first.
func (s *Service) ListOpenSlots(ctx context.Context, f SlotFilter) ([]Slot, error) {
	f.Language = strings.TrimSpace(f.Language)
	f.City = strings.TrimSpace(f.City)
	slots, err := s.repo.ListOpenSlots(ctx, nil, f)
	if err != nil {
		return nil, fmt.Errorf("list open slots: %w", err)
	}
	return slots, nil
}

func (s *Service) ListClinicSlots(ctx context.Context, clinicID uuid.UUID) ([]Slot, error) {
	slots, err := s.repo.ListSlotsByClinic(ctx, nil, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list clinic slots: %w", err)
	}
	return slots, nil
}

// ListPatientBookings returns the patient's bookings, cancelled ones included, newest first.
func (s *Service) ListPatientBookings(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	bookings, err := s.repo.ListBookingsByPatient(ctx, nil, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient bookings: %w", err)
	}
	return bookings, nil
}

func (s *Service) ListClinicBookings(ctx context.Context, clinicID uuid.UUID) ([]Booking, error) {
	bookings, err := s.repo.ListBookingsByClinic(ctx, nil, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list clinic bookings: %w", err)
	}
	return bookings, nil
}

// ExpireOpenSlots is intended to be called by the worker periodically
func (s *Service) ExpireOpenSlots(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ExpireOpenSlots(ctx, nil, now)
	if err != nil {
		return 0, fmt.Errorf("expire open slots: %w", err)
	}

	for _, id := range ids {
		slotID := id
		s.events.Record(ctx, events.SlotExpired, &slotID, nil, map[string]any{
			"reason": "worker",
		})
	}

	return len(ids), nil
}

func (s *Service) ownedSlot(ctx context.Context, clinicID, slotID uuid.UUID) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, nil, slotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if slot.ClinicID != clinicID {
		return nil, ErrNotSlotOwner
	}
	return slot, nil
}

// notifyOpened runs the hook with panics contained; the slot workflow has
// already committed and must not fail because of notification.
func (s *Service) notifyOpened(ctx context.Context, slot Slot) {
	if s.onOpened == nil || !slot.IsOpen() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("slot-opened hook panicked", "slot_id", slot.ID, "panic", r)
		}
	}()
	s.onOpened(ctx, slot)
}

func validateNewSlot(in *NewSlot) error {
	if in.ClinicID == uuid.Nil {
		return fmt.Errorf("%w: clinic id is required", ErrInvalidSlot)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidSlot)
	}
	if !in.StartTime.Valid() || !in.EndTime.Valid() {
		return fmt.Errorf("%w: times must be within the day", ErrInvalidSlot)
	}
	if in.EndTime <= in.StartTime {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	in.Language = strings.TrimSpace(in.Language)
	if in.Language == "" {
		in.Language = DefaultLanguage
	}
	in.Date = DateOnly(in.Date)
	return nil
}
