package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox/payloads"
)

func TestLowStockJobEmitsOncePerClaim(t *testing.T) {
	part := models.Part{ID: uuid.New(), Code: "PLUG-8", Name: "Spark plug", StockOnHand: 1, ReorderThreshold: 2}
	helper := newLowStockJobTest(t, []models.Part{part})
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	helper.job.now = func() time.Time { return now }

	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := helper.job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(helper.outbox.events) != 1 {
		t.Fatalf("expected 1 event across runs, got %d", len(helper.outbox.events))
	}
	event := helper.outbox.events[0]
	if event.EventType != enums.EventPartLowStock || event.AggregateType != enums.AggregatePart {
		t.Fatalf("unexpected event %s/%s", event.EventType, event.AggregateType)
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("unexpected occurred at %s", event.OccurredAt)
	}
	payload, ok := event.Data.(payloads.PartLowStockEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if payload.PartID != part.ID || payload.StockOnHand != 1 || payload.ReorderThreshold != 2 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if helper.metrics.alerts != 1 {
		t.Fatalf("expected 1 alert counted, got %d", helper.metrics.alerts)
	}
}

func TestLowStockJobReleasesClaimWhenEmitFails(t *testing.T) {
	part := models.Part{ID: uuid.New(), Code: "PLUG-8"}
	helper := newLowStockJobTest(t, []models.Part{part})
	helper.outbox.err = errors.New("insert failed")

	if err := helper.job.Run(context.Background()); err == nil {
		t.Fatal("expected emit error")
	}
	if len(helper.claims.claimed) != 0 {
		t.Fatalf("expected claim released, still holding %v", helper.claims.claimed)
	}
	if helper.metrics.alerts != 0 {
		t.Fatalf("expected no alert counted, got %d", helper.metrics.alerts)
	}
}

func TestLowStockJobSkipsOnClaimError(t *testing.T) {
	part := models.Part{ID: uuid.New(), Code: "PLUG-8"}
	helper := newLowStockJobTest(t, []models.Part{part})
	helper.claims.err = errors.New("redis down")

	if err := helper.job.Run(context.Background()); err == nil {
		t.Fatal("expected claim error")
	}
	if len(helper.outbox.events) != 0 {
		t.Fatalf("expected no events, got %d", len(helper.outbox.events))
	}
}

type lowStockJobTest struct {
	job     *lowStockJob
	outbox  *recordingOutbox
	claims  *memoryClaims
	metrics *countingLowStock
}

func newLowStockJobTest(t *testing.T, low []models.Part) *lowStockJobTest {
	t.Helper()
	helper := &lowStockJobTest{
		outbox:  &recordingOutbox{},
		claims:  &memoryClaims{claimed: map[string]bool{}},
		metrics: &countingLowStock{},
	}
	jobIface, err := NewLowStockJob(LowStockJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		DB:      passthroughTxRunner{},
		Parts:   fakeLowStockReader{parts: low},
		Outbox:  helper.outbox,
		Claims:  helper.claims,
		Metrics: helper.metrics,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	job, ok := jobIface.(*lowStockJob)
	if !ok {
		t.Fatalf("expected lowStockJob, got %T", jobIface)
	}
	helper.job = job
	return helper
}

type fakeLowStockReader struct {
	parts []models.Part
}

func (f fakeLowStockReader) ListAtOrBelowThreshold(context.Context) ([]models.Part, error) {
	return f.parts, nil
}

type recordingOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (r *recordingOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type memoryClaims struct {
	claimed map[string]bool
	err     error
}

func (m *memoryClaims) Claim(_ context.Context, eventType string, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := eventType + ":" + id.String()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *memoryClaims) Release(_ context.Context, eventType string, id uuid.UUID) error {
	delete(m.claimed, eventType+":"+id.String())
	return nil
}

type countingLowStock struct {
	alerts int
}

func (c *countingLowStock) IncLowStockAlert() { c.alerts++ }
