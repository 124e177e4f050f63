// Package bootstrap holds the start-up steps shared by every binary.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/motorshop-backend/pkg/config"
	"github.com/angelmondragon/motorshop-backend/pkg/db"
	"github.com/angelmondragon/motorshop-backend/pkg/logger"
	"github.com/angelmondragon/motorshop-backend/pkg/migrate"
)

// Load reads .env when present, loads the config and builds the service
// logger. The returned logger is usable even when err is set.
func Load(service string) (*config.Config, *logger.Logger, error) {
	envErr := godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.New(logger.Options{ServiceName: service}), fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = service

	logg := Logger(service, cfg.App)
	if envErr != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}
	return cfg, logg, nil
}

// Logger builds a logger from the app logging settings.
func Logger(service string, app config.AppConfig) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
		Console:     app.LogFormat == "console",
	})
}

// Database opens the configured database and, in dev with auto-migrate on,
// brings its schema up to date.
func Database(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dev migrations: %w", err)
	}
	return client, nil
}

// Closer logs failures from deferred Close calls.
func Closer(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			logg.Error(ctx, "error closing "+what, err)
		}
	}
}

// Exit logs err and exits non-zero. Only main should call it.
func Exit(logg *logger.Logger, err error) {
	logg.Error(context.Background(), "fatal", err)
	os.Exit(1)
}
