package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	dlqRetentionDays    = 90
	day                 = 24 * time.Hour
)

type publishedPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPurger interface {
	DeleteBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure outbox cleanup. DLQ is optional; when
// nil dead letters are kept forever.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Outbox       publishedPurger
	DLQ          deadLetterPurger
	Retention    int
	DLQRetention int
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	db           txRunner
	outbox       publishedPurger
	dlq          deadLetterPurger
	retention    time.Duration
	dlqRetention time.Duration
	now          func() time.Time
}

// NewOutboxRetentionJob builds the job that drops published outbox rows
// and old dead letters. Unpublished rows are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:         params.Logger,
		db:           params.DB,
		outbox:       params.Outbox,
		dlq:          params.DLQ,
		retention:    days(params.Retention, outboxRetentionDays),
		dlqRetention: days(params.DLQRetention, dlqRetentionDays),
		now:          time.Now,
	}, nil
}

func days(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * day
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var published, deadLetters int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if published, err = j.outbox.DeletePublishedBefore(tx, now.Add(-j.retention)); err != nil {
			return fmt.Errorf("published rows: %w", err)
		}
		if j.dlq == nil {
			return nil
		}
		if deadLetters, err = j.dlq.DeleteBefore(tx, now.Add(-j.dlqRetention)); err != nil {
			return fmt.Errorf("dead letters: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"published_deleted":   published,
		"dead_letter_deleted": deadLetters,
		"retention_days":      int(j.retention / day),
	}), "outbox retention cleanup complete")
	return nil
}
