package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/motorshop-backend/pkg/redis"
)

// Manager de-duplicates event emission per aggregate using Redis SETNX with a TTL.
// Keys follow the `ms:idempotency:evt:<event_type>:<aggregate_id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a guard that remembers an emission for the given TTL.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Claim returns true when the caller is the first to emit eventType for the
// aggregate inside the TTL window.
func (m *Manager) Claim(ctx context.Context, eventType string, aggregateID uuid.UUID) (bool, error) {
	key, err := m.key(eventType, aggregateID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Release forgets a claim, typically after the emission failed.
func (m *Manager) Release(ctx context.Context, eventType string, aggregateID uuid.UUID) error {
	key, err := m.key(eventType, aggregateID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(eventType string, aggregateID uuid.UUID) (string, error) {
	if eventType == "" {
		return "", errors.New("event type is required")
	}
	if aggregateID == uuid.Nil {
		return "", errors.New("aggregate id is required")
	}
	return m.store.IdempotencyKey(fmt.Sprintf("evt:%s", eventType), aggregateID.String()), nil
}
