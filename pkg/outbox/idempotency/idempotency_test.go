package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ms:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestClaimFirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	partID := uuid.New()
	first, err := manager.Claim(context.Background(), "part_low_stock", partID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !first {
		t.Fatalf("expected first claim to win")
	}

	expectedKey := "ms:idempotency:evt:part_low_stock:" + partID.String()
	if store.lastKey != expectedKey {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestClaimAlreadyTaken(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	first, err := manager.Claim(context.Background(), "part_low_stock", uuid.New())
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if first {
		t.Fatalf("expected claim to be rejected")
	}
}

func TestClaimStoreError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.Claim(context.Background(), "part_low_stock", uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestClaimValidatesInput(t *testing.T) {
	manager, err := NewManager(&fakeStore{}, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.Claim(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty event type")
	}
	if _, err := manager.Claim(context.Background(), "part_low_stock", uuid.Nil); err == nil {
		t.Fatal("expected error for nil aggregate id")
	}
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestRelease(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	partID := uuid.New()
	if err := manager.Release(context.Background(), "part_low_stock", partID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	expected := "ms:idempotency:evt:part_low_stock:" + partID.String()
	if store.lastDeleted != expected {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}
