package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/enums"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox/payloads"
)

// LowStockJobParams configure the low stock alert job.
type LowStockJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Parts   lowStockReader
	Outbox  outboxEmitter
	Claims  alertClaimer
	Metrics lowStockRecorder
}

type lowStockReader interface {
	ListAtOrBelowThreshold(ctx context.Context) ([]models.Part, error)
}

type alertClaimer interface {
	Claim(ctx context.Context, eventType string, aggregateID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventType string, aggregateID uuid.UUID) error
}

type lowStockRecorder interface {
	IncLowStockAlert()
}

// NewLowStockJob builds the job that queues one part_low_stock event per
// part and claim window.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Parts == nil {
		return nil, fmt.Errorf("parts reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.Claims == nil {
		return nil, fmt.Errorf("alert claimer required")
	}
	return &lowStockJob{
		logg:    params.Logger,
		db:      params.DB,
		parts:   params.Parts,
		outbox:  params.Outbox,
		claims:  params.Claims,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type lowStockJob struct {
	logg    *logger.Logger
	db      txRunner
	parts   lowStockReader
	outbox  outboxEmitter
	claims  alertClaimer
	metrics lowStockRecorder
	now     func() time.Time
}

func (j *lowStockJob) Name() string { return "low-stock-alert" }

func (j *lowStockJob) Run(ctx context.Context) error {
	low, err := j.parts.ListAtOrBelowThreshold(ctx)
	if err != nil {
		return fmt.Errorf("list low stock parts: %w", err)
	}

	var errs error
	emitted := 0
	for _, part := range low {
		sent, err := j.alert(ctx, part)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if sent {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"parts_low": len(low),
		"emitted":   emitted,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return errs
}

func (j *lowStockJob) alert(ctx context.Context, part models.Part) (bool, error) {
	eventType := string(enums.EventPartLowStock)
	claimed, err := j.claims.Claim(ctx, eventType, part.ID)
	if err != nil {
		return false, fmt.Errorf("claim low stock alert for %s: %w", part.Code, err)
	}
	if !claimed {
		return false, nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPartLowStock,
			AggregateType: enums.AggregatePart,
			AggregateID:   part.ID,
			Data: payloads.PartLowStockEvent{
				PartID:           part.ID,
				Code:             part.Code,
				Name:             part.Name,
				StockOnHand:      part.StockOnHand,
				ReorderThreshold: part.ReorderThreshold,
			},
			OccurredAt: j.now().UTC(),
		})
	})
	if err != nil {
		if relErr := j.claims.Release(ctx, eventType, part.ID); relErr != nil {
			err = multierr.Append(err, fmt.Errorf("release claim: %w", relErr))
		}
		return false, fmt.Errorf("emit low stock alert for %s: %w", part.Code, err)
	}

	if j.metrics != nil {
		j.metrics.IncLowStockAlert()
	}
	partCtx := j.logg.WithPartID(ctx, part.ID.String())
	partCtx = j.logg.WithFields(partCtx, map[string]any{
		"code":              part.Code,
		"stock_on_hand":     part.StockOnHand,
		"reorder_threshold": part.ReorderThreshold,
	})
	j.logg.Warn(partCtx, "part.low_stock")
	return true, nil
}
