package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/pkg/db/models"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
)

// StockReconcileJobParams configure the ledger reconciliation job.
type StockReconcileJobParams struct {
	Logger  *logger.Logger
	Parts   activePartsReader
	Ledger  ledgerVerifier
	Metrics discrepancyRecorder
}

type activePartsReader interface {
	ListActive(ctx context.Context) ([]models.Part, error)
}

type ledgerVerifier interface {
	VerifyLedger(ctx context.Context, partID uuid.UUID) (*parts.LedgerReport, error)
}

type discrepancyRecorder interface {
	AddDiscrepancies(n int)
}

// NewStockReconcileJob builds the job that replays every active part's
// movement history against its stored stock.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Parts == nil {
		return nil, fmt.Errorf("parts reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger verifier required")
	}
	return &stockReconcileJob{
		logg:    params.Logger,
		parts:   params.Parts,
		ledger:  params.Ledger,
		metrics: params.Metrics,
	}, nil
}

type stockReconcileJob struct {
	logg    *logger.Logger
	parts   activePartsReader
	ledger  ledgerVerifier
	metrics discrepancyRecorder
}

func (j *stockReconcileJob) Name() string { return "stock-reconcile" }

// Run never repairs stock. Out of balance parts are logged and counted so an
// operator can look at the movement history.
func (j *stockReconcileJob) Run(ctx context.Context) error {
	active, err := j.parts.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active parts: %w", err)
	}

	var errs error
	discrepancies := 0
	for _, part := range active {
		report, err := j.ledger.VerifyLedger(ctx, part.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("verify part %s: %w", part.Code, err))
			continue
		}
		if report.Balanced() {
			continue
		}
		discrepancies++
		partCtx := j.logg.WithPartID(ctx, part.ID.String())
		partCtx = j.logg.WithFields(partCtx, map[string]any{
			"code":           part.Code,
			"stock_on_hand":  report.StockOnHand,
			"expected_stock": report.ExpectedStock,
			"broken_links":   report.BrokenLinks,
			"movements":      report.MovementCount,
		})
		j.logg.Warn(partCtx, "part ledger out of balance")
	}
	if j.metrics != nil {
		j.metrics.AddDiscrepancies(discrepancies)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"parts_checked": len(active),
		"discrepancies": discrepancies,
	})
	j.logg.Info(logCtx, "stock reconciliation complete")
	return errs
}
