package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
)

const (
	DefaultDir = "pkg/migrate/migrations"

	// DialectPostgres is the only dialect the SQL migrations are written for.
	DialectPostgres = "postgres"
)

// Runner applies the goose migrations in Dir to a postgres database.
type Runner struct {
	DB  *sql.DB
	Dir string
}

// NewRunner checks its inputs and selects the postgres dialect.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := goose.SetDialect(DialectPostgres); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Runner{DB: db, Dir: dir}, nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	return r.run(ctx, "up")
}

// Down reverts the latest migration.
func (r *Runner) Down(ctx context.Context) error {
	return r.run(ctx, "down")
}

// Status prints applied and pending migrations to stdout.
func (r *Runner) Status(ctx context.Context) error {
	return r.run(ctx, "status")
}

func (r *Runner) run(ctx context.Context, command string) error {
	if err := goose.RunContext(ctx, command, r.DB, r.Dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// To moves the schema up or down until target is the newest applied version.
func (r *Runner) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected %s): %w", target, versionLayout, err)
	}
	current, err := goose.GetDBVersionContext(ctx, r.DB)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case version > current:
		err = goose.UpToContext(ctx, r.DB, r.Dir, version)
	case version < current:
		err = goose.DownToContext(ctx, r.DB, r.Dir, version)
	}
	if err != nil {
		return fmt.Errorf("migrate from %d to %d: %w", current, version, err)
	}
	return nil
}
