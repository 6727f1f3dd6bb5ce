package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"vidlib/internal/config"
	"vidlib/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations
`

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	dbPath := flag.String("db", cfg.DatabasePath, "path to sqlite database")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		log.Error("create provider", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), provider, flag.Arg(0), log); err != nil {
		log.Error("migrate", "command", flag.Arg(0), "path", *dbPath, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p *goose.Provider, cmd string, log *slog.Logger) error {
	switch cmd {
	case "up":
		results, err := p.Up(ctx)
		logResults(log, results)
		return err
	case "up-one":
		result, err := p.UpByOne(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("already at the latest version")
			return nil
		}
		logResults(log, []*goose.MigrationResult{result})
		return err
	case "down":
		result, err := p.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("no migration to roll back")
			return nil
		}
		logResults(log, []*goose.MigrationResult{result})
		return err
	case "reset":
		results, err := p.DownTo(ctx, 0)
		logResults(log, results)
		return err
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			log.Info("migration", "version", s.Source.Version, "path", s.Source.Path,
				"state", s.State, "applied_at", s.AppliedAt)
		}
		return nil
	case "version":
		version, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		log.Info("database version", "version", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func logResults(log *slog.Logger, results []*goose.MigrationResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		log.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path,
			"direction", r.Direction, "duration", r.Duration)
	}
	if len(results) == 0 {
		log.Info("no migrations to apply")
	}
}
