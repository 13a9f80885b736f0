// Package main is the entry point for the HOME store database migration tool.
// It applies the embedded schema migrations for the configured driver.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/config"
	"github.com/prn-tf/home-store/internal/repository/dbfactory"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("HOME Store Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		exitOnError(runUp(os.Args[2:]))

	case "status":
		exitOnError(runStatus(os.Args[2:]))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openFactory(args []string, name string) (*dbfactory.Factory, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return dbfactory.NewFactory(cfg.Database, logger), nil
}

func runUp(args []string) error {
	factory, err := openFactory(args, "up")
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := factory.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Database.Close()

	before, err := db.Database.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if err := db.Database.Migrate(ctx); err != nil {
		return err
	}
	after, err := db.Database.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	if before == after {
		fmt.Printf("Database (%s) is up to date at version %d\n", factory.Driver(), after)
		return nil
	}
	fmt.Printf("Migrated database (%s) from version %d to %d\n", factory.Driver(), before, after)
	return nil
}

func runStatus(args []string) error {
	factory, err := openFactory(args, "status")
	if err != nil {
		return err
	}

	migrations, err := factory.Migrations()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := factory.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Database.Close()

	current, err := db.Database.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Driver: %s\n", factory.Driver())
	fmt.Printf("Current version: %d\n\n", current)
	pending := 0
	for _, m := range migrations {
		state := "applied"
		if m.Version > current {
			state = "pending"
			pending++
		}
		fmt.Printf("  %06d  %-8s  %s\n", m.Version, state, m.Name)
	}
	fmt.Printf("\n%d pending\n", pending)
	return nil
}

func printUsage() {
	fmt.Println(`HOME Store Migration Tool

Usage:
  homestore-migrate <command> [--config <path>]

Commands:
  up          Apply all pending migrations
  status      Show applied and pending migrations
  version     Print version information
  help        Show this help message

The database is selected by the database.* configuration
(HOMESTORE_DATABASE_DRIVER=sqlite|postgres).

Examples:
  homestore-migrate up
  homestore-migrate status --config ./configs/config.yaml`)
}
