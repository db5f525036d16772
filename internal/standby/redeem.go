package standby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/events"
	"github.com/hackgods/standby-scheduling/internal/observability/metrics"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/pkg/logging"
)

type RedeemResult string

const (
	RedeemSuccess RedeemResult = "success"
	RedeemInvalid RedeemResult = "invalid"
	RedeemTaken   RedeemResult = "taken"
)

// Redeemer consumes confirmation tokens and claims the slot they point to.
type Redeemer struct {
	store   ConfirmationStore
	claimer SlotClaimer
	events  *events.Recorder
	metrics *metrics.StandbyMetrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewRedeemer(store ConfirmationStore, claimer SlotClaimer, rec *events.Recorder, m *metrics.StandbyMetrics, logger *logging.Logger) *Redeemer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Redeemer{
		store:   store,
		claimer: claimer,
		events:  rec,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Redeem marks token used and books its slot in one transaction.
// Unknown, used and expired tokens are RedeemInvalid. A slot that is no longer
// open is RedeemTaken and leaves the token unused. Only storage failures
// return an error.
func (r *Redeemer) Redeem(ctx context.Context, token string) (RedeemResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		r.metrics.ObserveRedemption(string(RedeemInvalid))
		return RedeemInvalid, nil
	}

	var conf *Confirmation
	var booking *scheduling.Booking
	err := r.store.InTx(ctx, func(q db.Querier) error {
		c, err := r.store.ConsumeConfirmation(ctx, q, token, r.now().UTC())
		if err != nil {
			return err
		}
		b, err := r.claimer.ClaimSlot(ctx, q, c.SlotID, c.PatientID)
		if err != nil {
			return err
		}
		conf, booking = c, b
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrConfirmationInvalid):
		r.metrics.ObserveRedemption(string(RedeemInvalid))
		return RedeemInvalid, nil
	case errors.Is(err, scheduling.ErrSlotNotOpen):
		r.metrics.ObserveRedemption(string(RedeemTaken))
		return RedeemTaken, nil
	default:
		return "", fmt.Errorf("redeem confirmation: %w", err)
	}

	r.metrics.ObserveRedemption(string(RedeemSuccess))
	r.events.Record(ctx, events.SlotClaimed, &conf.SlotID, &conf.PatientID, map[string]any{
		"booking_id": booking.ID.String(),
	})
	r.logger.Info("standby slot claimed", "slot_id", conf.SlotID, "patient_id", conf.PatientID)
	return RedeemSuccess, nil
}

// PurgeExpiredConfirmations deletes tokens that expired more than olderThan ago.
func (r *Redeemer) PurgeExpiredConfirmations(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := r.store.PurgeConfirmations(ctx, r.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge confirmations: %w", err)
	}
	return n, nil
}
