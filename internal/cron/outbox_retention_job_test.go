package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/motorshop-backend/pkg/logger"
)

var retentionNow = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func TestOutboxRetentionJobUsesDefaultWindows(t *testing.T) {
	published, dlq := &fakePurger{}, &fakePurger{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{Outbox: published, DLQ: dlq})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, retentionNow.Add(-30*day), published.cutoff)
	require.Equal(t, retentionNow.Add(-90*day), dlq.cutoff)
}

func TestOutboxRetentionJobHonorsConfiguredWindows(t *testing.T) {
	published, dlq := &fakePurger{}, &fakePurger{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{
		Outbox:       published,
		DLQ:          dlq,
		Retention:    7,
		DLQRetention: 14,
	})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, retentionNow.Add(-7*day), published.cutoff)
	require.Equal(t, retentionNow.Add(-14*day), dlq.cutoff)
}

func TestOutboxRetentionJobWithoutDLQ(t *testing.T) {
	published := &fakePurger{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{Outbox: published})

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, published.calls)
}

func TestOutboxRetentionJobStopsOnPublishedError(t *testing.T) {
	published, dlq := &fakePurger{err: errors.New("boom")}, &fakePurger{}
	job := newOutboxRetentionJob(t, OutboxRetentionJobParams{Outbox: published, DLQ: dlq})

	err := job.Run(context.Background())
	require.ErrorContains(t, err, "published rows: boom")
	require.Zero(t, dlq.calls)
}

func TestNewOutboxRetentionJobRequiresOutbox(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     passthroughTxRunner{},
	})
	require.Error(t, err)
}

func newOutboxRetentionJob(t *testing.T, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.New(logger.Options{ServiceName: "test"})
	params.DB = passthroughTxRunner{}
	job, err := NewOutboxRetentionJob(params)
	require.NoError(t, err)
	concrete := job.(*outboxRetentionJob)
	concrete.now = func() time.Time { return retentionNow }
	return concrete
}

type fakePurger struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakePurger) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	return f.DeleteBefore(nil, cutoff)
}

func (f *fakePurger) DeleteBefore(_ *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
