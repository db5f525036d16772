package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/standby-scheduling/internal/db"
)

const slotColumns = `id, clinic_id, doctor_id, date, start_time, end_time, language, specialization, status, created_at, updated_at`

const bookingColumns = `id, patient_id, slot_id, confirmed_at, cancelled, cancelled_at`

const slotColumnsS = `s.id, s.clinic_id, s.doctor_id, s.date, s.start_time, s.end_time, s.language, s.specialization, s.status, s.created_at, s.updated_at`

const bookingColumnsB = `b.id, b.patient_id, b.slot_id, b.confirmed_at, b.cancelled, b.cancelled_at`

type PgRepository struct {
	pool db.PgxPool
}

func NewPgRepository(pool db.PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func (r *PgRepository) q(q db.Querier) db.Querier {
	if q == nil {
		return r.pool
	}
	return q
}

// ToPGTime encodes a Clock for a TIME column.
func ToPGTime(c Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

// FromPGTime decodes a TIME column, dropping seconds.
func FromPGTime(t pgtype.Time) Clock {
	return Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end pgtype.Time

	err := row.Scan(
		&s.ID,
		&s.ClinicID,
		&s.DoctorID,
		&s.Date,
		&start,
		&end,
		&s.Language,
		&s.Specialization,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = DateOnly(s.Date)
	s.StartTime = FromPGTime(start)
	s.EndTime = FromPGTime(end)
	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.PatientID,
		&b.SlotID,
		&b.ConfirmedAt,
		&b.Cancelled,
		&b.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()
	var out []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Interface methods

func (r *PgRepository) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

func (r *PgRepository) GetSlotByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Slot, error) {
	row := r.q(q).QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) InsertSlot(ctx context.Context, q db.Querier, in NewSlot) (*Slot, error) {
	row := r.q(q).QueryRow(ctx, `
		INSERT INTO slots (id, clinic_id, doctor_id, date, start_time, end_time, language, specialization, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open', now(), now())
		RETURNING `+slotColumns,
		uuid.New(), in.ClinicID, in.DoctorID, DateOnly(in.Date), ToPGTime(in.StartTime), ToPGTime(in.EndTime),
		in.Language, in.Specialization)
	return scanSlot(row)
}

func (r *PgRepository) TransitionSlot(ctx context.Context, q db.Querier, id uuid.UUID, to SlotStatus, from ...SlotStatus) (*Slot, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	row := r.q(q).QueryRow(ctx, `
		UPDATE slots
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = ANY($3)
		RETURNING `+slotColumns,
		id, string(to), allowed)

	slot, err := scanSlot(row)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, ErrStatusConflict
	}
	return slot, err
}

func (r *PgRepository) InsertBooking(ctx context.Context, q db.Querier, slotID, patientID uuid.UUID) (*Booking, error) {
	row := r.q(q).QueryRow(ctx, `
		INSERT INTO bookings (id, patient_id, slot_id, confirmed_at, cancelled)
		VALUES ($1, $2, $3, now(), false)
		RETURNING `+bookingColumns,
		uuid.New(), patientID, slotID)
	return scanBooking(row)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Booking, error) {
	row := r.q(q).QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) CancelBooking(ctx context.Context, q db.Querier, id uuid.UUID) (*Booking, error) {
	row := r.q(q).QueryRow(ctx, `
		UPDATE bookings
		SET cancelled = true,
		    cancelled_at = now()
		WHERE id = $1
		  AND cancelled = false
		RETURNING `+bookingColumns,
		id)
	return scanBooking(row)
}

func (r *PgRepository) CancelSlotBookings(ctx context.Context, q db.Querier, slotID uuid.UUID) (int64, error) {
	tag, err := r.q(q).Exec(ctx, `
		UPDATE bookings
		SET cancelled = true,
		    cancelled_at = now()
		WHERE slot_id = $1
		  AND cancelled = false
	`, slotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ListOpenSlots(ctx context.Context, q db.Querier, f SlotFilter) ([]Slot, error) {
	rows, err := r.q(q).Query(ctx, `
		SELECT `+slotColumnsS+`
		FROM slots s
		JOIN clinics c ON c.id = s.clinic_id
		WHERE s.status = 'open'
		  AND ($1::text = '' OR lower(s.language) = lower($1::text))
		  AND ($2::text = '' OR lower(c.city) = lower($2::text))
		ORDER BY s.date, s.start_time
	`, f.Language, f.City)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) ListSlotsByClinic(ctx context.Context, q db.Querier, clinicID uuid.UUID) ([]Slot, error) {
	rows, err := r.q(q).Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE clinic_id = $1
		ORDER BY date, start_time
	`, clinicID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) ListBookingsByPatient(ctx context.Context, q db.Querier, patientID uuid.UUID) ([]Booking, error) {
	rows, err := r.q(q).Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE patient_id = $1
		ORDER BY confirmed_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListBookingsByClinic(ctx context.Context, q db.Querier, clinicID uuid.UUID) ([]Booking, error) {
	rows, err := r.q(q).Query(ctx, `
		SELECT `+bookingColumnsB+`
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE s.clinic_id = $1
		ORDER BY b.confirmed_at DESC
	`, clinicID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ExpireOpenSlots(ctx context.Context, q db.Querier, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.q(q).Query(ctx, `
		UPDATE slots
		SET status = 'expired',
		    updated_at = now()
		WHERE status = 'open'
		  AND (date + end_time) < ($1::timestamptz AT TIME ZONE 'UTC')
		RETURNING id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
