package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/angelmondragon/motorshop-backend/pkg/bootstrap"
	"github.com/angelmondragon/motorshop-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// offline commands only touch the migrations directory.
var offline = map[string]func(options) (string, error){
	"create": func(o options) (string, error) {
		if o.name == "" {
			return "", fmt.Errorf("missing -name")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		return "created migration: " + path, err
	},
	"validate": func(o options) (string, error) {
		return "migration validation passed", migrate.ValidateDir(o.dir)
	},
}

var online = map[string]func(context.Context, *migrate.Runner, options) error{
	"up":     func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Up(ctx) },
	"down":   func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Down(ctx) },
	"status": func(ctx context.Context, r *migrate.Runner, _ options) error { return r.Status(ctx) },
	"version": func(ctx context.Context, r *migrate.Runner, o options) error {
		if o.version == "" {
			return fmt.Errorf("missing -version")
		}
		return r.To(ctx, o.version)
	},
}

func main() {
	var opts options
	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	if fn, ok := offline[*cmd]; ok {
		msg, err := fn(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
			os.Exit(1)
		}
		fmt.Println(msg)
		return
	}
	fn, ok := online[*cmd]
	if !ok {
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(2)
	}

	cfg, logg, err := bootstrap.Load("migrate")
	if err != nil {
		bootstrap.Exit(logg, err)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": opts.dir,
	})

	if cfg.DB.IsSQLite() {
		logg.Warn(ctx, "sql migrations target postgres; sqlite schemas are created by MOTORSHOP_AUTO_MIGRATE")
		os.Exit(1)
	}

	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logg.Error(ctx, "database unavailable", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	runner, err := migrate.NewRunner(sqlDB, opts.dir)
	if err == nil {
		err = fn(ctx, runner, opts)
	}
	if err != nil {
		logg.Error(ctx, "migration failed", err)
		sqlDB.Close()
		os.Exit(1)
	}
	logg.Info(ctx, "migration finished")
}
