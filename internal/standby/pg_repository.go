package standby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/standby-scheduling/internal/db"
)

const preferenceColumns = `id, patient_id, enabled, preferred_languages, preferred_days, preferred_times, max_notifications_per_day, created_at, updated_at`

const dndColumns = `id, patient_id, enabled, dnd_days, dnd_time_ranges, temporarily_paused, pause_until, start_date, end_date, created_at, updated_at`

const confirmationColumns = `token, slot_id, patient_id, expires_at, used, used_at, created_at`

type PgRepository struct {
	pool db.PgxPool
}

func NewPgRepository(pool db.PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPreference(row pgx.Row) (*Preference, error) {
	var p Preference
	err := row.Scan(
		&p.ID,
		&p.PatientID,
		&p.Enabled,
		&p.PreferredLanguages,
		&p.PreferredDays,
		&p.PreferredTimes,
		&p.MaxNotificationsPerDay,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDND(row pgx.Row) (*DND, error) {
	var d DND
	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.Enabled,
		&d.Days,
		&d.TimeRanges,
		&d.TemporarilyPaused,
		&d.PauseUntil,
		&d.StartDate,
		&d.EndDate,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDNDNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanConfirmation(row pgx.Row) (*Confirmation, error) {
	var c Confirmation
	err := row.Scan(
		&c.Token,
		&c.SlotID,
		&c.PatientID,
		&c.ExpiresAt,
		&c.Used,
		&c.UsedAt,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConfirmationInvalid
		}
		return nil, err
	}
	return &c, nil
}

// Preferences

func (r *PgRepository) ListEnabledPreferences(ctx context.Context) ([]Preference, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+preferenceColumns+`
		FROM standby_preferences
		WHERE enabled = true
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return prefs, nil
}

func (r *PgRepository) GetPreferenceByPatient(ctx context.Context, patientID uuid.UUID) (*Preference, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+preferenceColumns+`
		FROM standby_preferences
		WHERE patient_id = $1
	`, patientID)
	return scanPreference(row)
}

func (r *PgRepository) UpsertPreference(ctx context.Context, p Preference) (*Preference, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO standby_preferences (id, patient_id, enabled, preferred_languages, preferred_days, preferred_times, max_notifications_per_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (patient_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    preferred_languages = EXCLUDED.preferred_languages,
		    preferred_days = EXCLUDED.preferred_days,
		    preferred_times = EXCLUDED.preferred_times,
		    max_notifications_per_day = EXCLUDED.max_notifications_per_day,
		    updated_at = now()
		RETURNING `+preferenceColumns,
		uuid.New(), p.PatientID, p.Enabled, nonNil(p.PreferredLanguages), nonNil(p.PreferredDays),
		p.PreferredTimes, p.MaxNotificationsPerDay)
	return scanPreference(row)
}

func (r *PgRepository) GetDNDByPatient(ctx context.Context, patientID uuid.UUID) (*DND, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+dndColumns+`
		FROM dnd_preferences
		WHERE patient_id = $1
	`, patientID)
	return scanDND(row)
}

func (r *PgRepository) UpsertDND(ctx context.Context, d DND) (*DND, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO dnd_preferences (id, patient_id, enabled, dnd_days, dnd_time_ranges, temporarily_paused, pause_until, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (patient_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    dnd_days = EXCLUDED.dnd_days,
		    dnd_time_ranges = EXCLUDED.dnd_time_ranges,
		    temporarily_paused = EXCLUDED.temporarily_paused,
		    pause_until = EXCLUDED.pause_until,
		    start_date = EXCLUDED.start_date,
		    end_date = EXCLUDED.end_date,
		    updated_at = now()
		RETURNING `+dndColumns,
		uuid.New(), d.PatientID, d.Enabled, nonNil(d.Days), d.TimeRanges, d.TemporarilyPaused,
		d.PauseUntil, d.StartDate, d.EndDate)
	return scanDND(row)
}

// Confirmations

func (r *PgRepository) InTx(ctx context.Context, fn func(q db.Querier) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}

func (r *PgRepository) InsertConfirmation(ctx context.Context, c Confirmation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO slot_confirmations (token, slot_id, patient_id, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, c.Token, c.SlotID, c.PatientID, c.ExpiresAt, c.CreatedAt)
	return err
}

// ConsumeConfirmation locks the token row, so a concurrent redemption of the
// same token waits and then sees it used (or unused again after a rollback).
func (r *PgRepository) ConsumeConfirmation(ctx context.Context, q db.Querier, token string, now time.Time) (*Confirmation, error) {
	if q == nil {
		q = r.pool
	}
	row := q.QueryRow(ctx, `
		UPDATE slot_confirmations
		SET used = true,
		    used_at = $2
		WHERE token = $1
		  AND used = false
		  AND expires_at >= $2
		RETURNING `+confirmationColumns,
		token, now)
	return scanConfirmation(row)
}

func (r *PgRepository) ListConfirmationsBySlot(ctx context.Context, slotID uuid.UUID) ([]Confirmation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+confirmationColumns+`
		FROM slot_confirmations
		WHERE slot_id = $1
		ORDER BY created_at
	`, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Confirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PgRepository) PurgeConfirmations(ctx context.Context, expiredBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slot_confirmations
		WHERE expires_at < $1
	`, expiredBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
