package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"accounts/config"
	"accounts/internal/domain/lifecycle"
	"accounts/internal/infra/persistence/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

// Supported subcommands:
// - up:     Apply all pending migrations
// - down:   Roll back the most recent migration
// - status: Print the applied state of every migration

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := migrateCmd.String("dsn", "", "Postgres connection string (defaults to the service configuration)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := migrateCmd.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], *dsn); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, subcommand, dsn string) error {
	migrate, err := migrationFor(subcommand)
	if err != nil {
		printUsage()

		return err
	}

	if dsn == "" {
		cfg, err := config.New()
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		dsn = cfg.Postgres.PrimaryDSN()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return errors.Wrap(err, "failed to reach database")
	}

	return migrate(ctx, db)
}

func migrationFor(subcommand string) (func(context.Context, *sql.DB) error, error) {
	switch subcommand {
	case "up":
		return postgres.RunMigrations, nil
	case "down":
		return postgres.RollbackMigration, nil
	case "status":
		return postgres.MigrationStatus, nil
	default:
		return nil, errors.Errorf("unknown subcommand %q", subcommand)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate <up|down|status> [-dsn postgres://...]")
}
