package standby

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DefaultConfirmationTTL = 2 * time.Hour

// Issuer creates single-use confirmation tokens.
type Issuer struct {
	store ConfirmationStore
	ttl   time.Duration
	now   func() time.Time
}

func NewIssuer(store ConfirmationStore, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	return &Issuer{store: store, ttl: ttl, now: time.Now}
}

// Issue persists a fresh token for (slotID, patientID). Earlier live tokens
// for the same pair stay valid.
func (i *Issuer) Issue(ctx context.Context, slotID, patientID uuid.UUID) (*Confirmation, error) {
	now := i.now().UTC()
	c := Confirmation{
		Token:     uuid.NewString(),
		SlotID:    slotID,
		PatientID: patientID,
		ExpiresAt: now.Add(i.ttl),
		CreatedAt: now,
	}

	if err := i.store.InsertConfirmation(ctx, c); err != nil {
		return nil, fmt.Errorf("insert confirmation: %w", err)
	}
	return &c, nil
}
