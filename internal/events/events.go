package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

const (
	SlotOpened       = "SLOT_OPENED"
	SlotReopened     = "SLOT_REOPENED"
	SlotCancelled    = "SLOT_CANCELLED"
	SlotBooked       = "SLOT_BOOKED"
	SlotExpired      = "SLOT_EXPIRED"
	BookingCancelled = "BOOKING_CANCELLED"
	StandbyNotified  = "STANDBY_NOTIFIED"
	SlotClaimed      = "SLOT_CLAIMED"
)

type Log struct {
	ID        int64
	EventType string
	SlotID    *uuid.UUID
	PatientID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// Recorder appends audit rows to event_logs. Failures are logged, never returned.
type Recorder struct {
	pool   db.Querier
	logger *logging.Logger
}

func NewRecorder(pool db.Querier, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{pool: pool, logger: logger}
}

// Record runs outside any caller transaction so a failed insert cannot abort it.
func (r *Recorder) Record(ctx context.Context, eventType string, slotID, patientID *uuid.UUID, payload map[string]any) {
	if r == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	ev := Log{
		EventType: eventType,
		SlotID:    slotID,
		PatientID: patientID,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}

	if err := insert(ctx, r.pool, ev); err != nil {
		r.logger.Error("failed to insert event log", "event_type", eventType, "error", err)
	}
}

func insert(ctx context.Context, q db.Querier, ev Log) error {
	_, err := q.Exec(ctx, `
		INSERT INTO event_logs (event_type, slot_id, patient_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.EventType, ev.SlotID, ev.PatientID, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}
