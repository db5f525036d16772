package events

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/standby-scheduling/pkg/logging"
)

func TestRecordInsertsEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	slotID := uuid.New()
	patientID := uuid.New()
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(StandbyNotified, &slotID, &patientID, []byte(`{"token":"abc"}`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := NewRecorder(mock, nil)
	rec.Record(context.Background(), StandbyNotified, &slotID, &patientID, map[string]any{"token": "abc"})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSwallowsInsertFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	var buf bytes.Buffer
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(SlotOpened, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	rec := NewRecorder(mock, logging.NewWithWriter(&buf, "info"))
	rec.Record(context.Background(), SlotOpened, nil, nil, nil)

	require.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, buf.String(), "failed to insert event log")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), SlotOpened, nil, nil, nil)
}
