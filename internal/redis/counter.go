package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Keys are per UTC date; the TTL only has to outlive that date.
const dailyCounterTTL = 48 * time.Hour

// NotificationCounter counts standby notifications per patient per calendar day.
type NotificationCounter struct {
	client *redis.Client
}

func NewNotificationCounter(client *redis.Client) *NotificationCounter {
	return &NotificationCounter{client: client}
}

// Increment bumps the counter for patientID on day's date and returns the new value.
func (c *NotificationCounter) Increment(ctx context.Context, patientID uuid.UUID, day time.Time) (int64, error) {
	key := dailyKey(patientID, day)

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, dailyCounterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment notification counter: %w", err)
	}

	return incr.Val(), nil
}

// Release gives back one unit taken by Increment.
func (c *NotificationCounter) Release(ctx context.Context, patientID uuid.UUID, day time.Time) error {
	if err := c.client.Decr(ctx, dailyKey(patientID, day)).Err(); err != nil {
		return fmt.Errorf("release notification counter: %w", err)
	}
	return nil
}

// Count returns the current value without modifying it.
func (c *NotificationCounter) Count(ctx context.Context, patientID uuid.UUID, day time.Time) (int64, error) {
	n, err := c.client.Get(ctx, dailyKey(patientID, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read notification counter: %w", err)
	}
	return n, nil
}

func dailyKey(patientID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("standby:notified:%s:%s", patientID.String(), day.UTC().Format("2006-01-02"))
}
