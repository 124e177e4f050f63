package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/motorshop-backend/api/routes"
	"github.com/angelmondragon/motorshop-backend/internal/history"
	"github.com/angelmondragon/motorshop-backend/internal/parts"
	"github.com/angelmondragon/motorshop-backend/internal/payments"
	"github.com/angelmondragon/motorshop-backend/internal/servicelines"
	"github.com/angelmondragon/motorshop-backend/internal/usage"
	"github.com/angelmondragon/motorshop-backend/internal/workorders"
	"github.com/angelmondragon/motorshop-backend/pkg/bootstrap"
	"github.com/angelmondragon/motorshop-backend/pkg/config"
	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/instance"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/metrics"
	"github.com/angelmondragon/motorshop-backend/pkg/outbox"
	"github.com/angelmondragon/motorshop-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, logg, err := bootstrap.Load(serviceName)
	if err != nil {
		bootstrap.Exit(logg, err)
	}
	if err := run(cfg, logg); err != nil {
		bootstrap.Exit(logg, err)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	// PORT is set by the hosting platform and wins over the configured port.
	addr := ":" + cfg.App.Port
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	partsService, workOrderService, err := buildServices(dbClient, logg, reg)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			metrics.NewHTTPMetrics(reg),
			workOrderService,
			partsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
	return nil
}

func buildServices(dbClient *db.Client, logg *logger.Logger, reg prometheus.Registerer) (parts.Service, workorders.Service, error) {
	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)

	ledger, err := parts.NewService(parts.NewRepository(conn), dbClient, logg, metrics.NewInventoryMetrics(reg), outboxService)
	if err != nil {
		return nil, nil, err
	}
	usageService, err := usage.NewService(usage.NewRepository(conn), ledger)
	if err != nil {
		return nil, nil, err
	}
	lineService, err := servicelines.NewService(servicelines.NewRepository(conn))
	if err != nil {
		return nil, nil, err
	}
	historyService, err := history.NewService(history.NewRepository(conn))
	if err != nil {
		return nil, nil, err
	}
	paymentService, err := payments.NewService(payments.NewRepository(conn))
	if err != nil {
		return nil, nil, err
	}

	workOrderService, err := workorders.NewService(workorders.Params{
		Repository:   workorders.NewRepository(conn),
		Tx:           dbClient,
		Usage:        usageService,
		ServiceLines: lineService,
		History:      historyService,
		Payments:     paymentService,
		Outbox:       outboxService,
		Logger:       logg,
		Metrics:      metrics.NewWorkOrderMetrics(reg),
	})
	if err != nil {
		return nil, nil, err
	}
	return ledger, workOrderService, nil
}
