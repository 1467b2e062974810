package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/redisclient"
)

// SubmissionGuard keeps one payment from becoming two commerce orders.
// Lookup answers replays of a completed submission; Claim marks a submission
// as in flight.
type SubmissionGuard interface {
	Lookup(ctx context.Context, paymentID string) (*models.CommerceOrder, error)
	Claim(ctx context.Context, paymentID string) (bool, error)
	Release(ctx context.Context, paymentID string) error
	Record(ctx context.Context, paymentID string, order *models.CommerceOrder) error
}

// RedisSubmissionGuard stores claims as locks and completed orders as
// idempotency keys, both expiring after ttl.
type RedisSubmissionGuard struct {
	redis *redisclient.Client
	ttl   time.Duration
}

// NewRedisSubmissionGuard creates a guard backed by Redis
func NewRedisSubmissionGuard(redis *redisclient.Client, ttl time.Duration) *RedisSubmissionGuard {
	return &RedisSubmissionGuard{redis: redis, ttl: ttl}
}

func claimKey(paymentID string) string  { return "submission:" + paymentID }
func recordKey(paymentID string) string { return "payment:" + paymentID }

// Lookup returns the order recorded for paymentID, or nil if there is none
func (g *RedisSubmissionGuard) Lookup(ctx context.Context, paymentID string) (*models.CommerceOrder, error) {
	raw, found, err := g.redis.GetIdempotencyValue(ctx, recordKey(paymentID))
	if err != nil {
		return nil, fmt.Errorf("failed to look up submission: %w", err)
	}
	if !found {
		return nil, nil
	}

	var order models.CommerceOrder
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, fmt.Errorf("failed to decode recorded order: %w", err)
	}
	return &order, nil
}

// Claim reports false when another submission for paymentID is in flight
func (g *RedisSubmissionGuard) Claim(ctx context.Context, paymentID string) (bool, error) {
	ok, err := g.redis.AcquireLock(ctx, claimKey(paymentID), g.ttl)
	if err != nil {
		return false, fmt.Errorf("failed to claim submission: %w", err)
	}
	return ok, nil
}

// Release drops the claim so the payment may be submitted again
func (g *RedisSubmissionGuard) Release(ctx context.Context, paymentID string) error {
	return g.redis.ReleaseLock(ctx, claimKey(paymentID))
}

// Record stores the created order for replay lookups
func (g *RedisSubmissionGuard) Record(ctx context.Context, paymentID string, order *models.CommerceOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}
	return g.redis.SetIdempotencyKey(ctx, recordKey(paymentID), string(data), g.ttl)
}
