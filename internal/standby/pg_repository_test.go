package standby

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *string:
			*d = v.(string)
		case *bool:
			*d = v.(bool)
		case *time.Time:
			*d = v.(time.Time)
		case **time.Time:
			*d = v.(*time.Time)
		default:
			return errors.New("unexpected scan destination")
		}
	}
	return nil
}

func TestScanConfirmation(t *testing.T) {
	slot, patient := uuid.New(), uuid.New()
	created := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	c, err := scanConfirmation(fakeRow{values: []any{
		"tok", slot, patient, created.Add(2 * time.Hour), false, (*time.Time)(nil), created,
	}})
	require.NoError(t, err)
	assert.Equal(t, "tok", c.Token)
	assert.Equal(t, slot, c.SlotID)
	assert.Equal(t, ConfirmationPending, c.State(created))
	assert.Nil(t, c.UsedAt)

	_, err = scanConfirmation(fakeRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, ErrConfirmationInvalid)
}

func TestScanPreferenceNotFound(t *testing.T) {
	_, err := scanPreference(fakeRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, ErrPreferenceNotFound)

	_, err = scanDND(fakeRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, ErrDNDNotFound)
}

func TestConsumeConfirmationRejected(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE slot_confirmations").
		WithArgs("tok", now).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.ConsumeConfirmation(context.Background(), nil, "tok", now)
	assert.ErrorIs(t, err, ErrConfirmationInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertConfirmation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	c := Confirmation{
		Token:     uuid.NewString(),
		SlotID:    uuid.New(),
		PatientID: uuid.New(),
		ExpiresAt: time.Now().Add(2 * time.Hour),
		CreatedAt: time.Now(),
	}

	mock.ExpectExec("INSERT INTO slot_confirmations").
		WithArgs(c.Token, c.SlotID, c.PatientID, c.ExpiresAt, c.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.InsertConfirmation(context.Background(), c))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeConfirmations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	before := time.Now().UTC()

	mock.ExpectExec("DELETE FROM slot_confirmations").
		WithArgs(before).
		WillReturnResult(pgconn.NewCommandTag("DELETE 4"))

	n, err := repo.PurgeConfirmations(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemRollsBackThroughPostgres(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgRepository(mock)
	slots := newFakeSlots()
	redeemer := NewRedeemer(repo, slots, nil, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE slot_confirmations").
		WithArgs("tok", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	res, err := redeemer.Redeem(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, RedeemInvalid, res)
	require.NoError(t, mock.ExpectationsWereMet())
}
