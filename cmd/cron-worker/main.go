package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/motorshop-backend/internal/cron"
	"github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/pkg/bootstrap"
	"github.com/angelmondragon/motorshop-backend/pkg/config"
	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/instance"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/metrics"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/motorshop-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		bootstrap.Exit(logg, err)
	}
	if err := run(cfg, logg, *once); err != nil {
		bootstrap.Exit(logg, err)
	}
}

func run(cfg *config.Config, logg *logger.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := bootstrap.Database(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer bootstrap.Closer(ctx, logg, "database", dbClient.Close)()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer bootstrap.Closer(ctx, logg, "redis", redisClient.Close)()

	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	partsRepo := parts.NewRepository(dbClient.DB())
	ledger, err := parts.NewService(partsRepo, dbClient, logg, inventoryMetrics, outboxService)
	if err != nil {
		return fmt.Errorf("create parts ledger: %w", err)
	}
	claims, err := idempotency.NewManager(redisClient, cfg.Inventory.LowStockAlertTTL)
	if err != nil {
		return fmt.Errorf("create alert claims: %w", err)
	}

	jobs, err := buildJobs(cfg, logg, dbClient, partsRepo, ledger, outboxService, claims, inventoryMetrics)
	if err != nil {
		return fmt.Errorf("build cron jobs: %w", err)
	}
	registry, err := cron.NewRegistry(jobs...)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"lock_key": lock.Key(),
	})
	if once {
		logg.Info(ctx, "running single cron cycle")
		return service.RunOnce(ctx)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cron worker stopped: %w", err)
	}
	logg.Info(ctx, "cron worker shut down gracefully")
	return nil
}

func buildJobs(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	partsRepo parts.Repository,
	ledger parts.Service,
	outboxService *outbox.Service,
	claims *idempotency.Manager,
	inventoryMetrics *metrics.InventoryMetrics,
) ([]cron.Job, error) {
	reconcile, err := cron.NewStockReconcileJob(cron.StockReconcileJobParams{
		Logger:  logg,
		Parts:   partsRepo,
		Ledger:  ledger,
		Metrics: inventoryMetrics,
	})
	if err != nil {
		return nil, err
	}
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:  logg,
		DB:      dbClient,
		Parts:   partsRepo,
		Outbox:  outboxService,
		Claims:  claims,
		Metrics: inventoryMetrics,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:       logg,
		DB:           dbClient,
		Outbox:       outbox.NewRepository(dbClient.DB()),
		DLQ:          outbox.NewDLQRepository(dbClient.DB()),
		Retention:    cfg.Cron.OutboxRetentionDays,
		DLQRetention: cfg.Cron.DLQRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	return []cron.Job{reconcile, lowStock, retention}, nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
