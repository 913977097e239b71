package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopvia/shopvia-backend/pkg/redis"
)

const guardScope = "payment_webhook"

// Guard is the first idempotency layer for webhook delivery: a SetNX mark
// per event id. The mark is advisory; the order's payment status remains
// the authoritative replay check. A failed finalization releases the mark
// so the provider's redelivery gets another attempt.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Guard{store: store, ttl: ttl}
}

// CheckAndMark returns true when this is the first sighting of the event.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(guardScope, eventID)
	ok, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, fmt.Errorf("marking webhook event: %w", err)
	}
	return ok, nil
}

// Release drops the mark so a redelivery can retry the event.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	key := g.store.IdempotencyKey(guardScope, eventID)
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("releasing webhook event mark: %w", err)
	}
	return nil
}
