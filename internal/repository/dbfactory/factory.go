// Package dbfactory creates repositories based on the configured database driver.
package dbfactory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/home-store/internal/config"
	"github.com/prn-tf/home-store/internal/repository"
	"github.com/prn-tf/home-store/internal/repository/postgres"
	"github.com/prn-tf/home-store/internal/repository/sqlite"
)

// Result contains the created repositories and database connection.
type Result struct {
	Repos    *repository.Repositories
	Database repository.Database
}

// Factory creates repositories based on configuration.
type Factory struct {
	cfg    config.DatabaseConfig
	logger zerolog.Logger
}

// NewFactory creates a new repository factory.
func NewFactory(cfg config.DatabaseConfig, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger.With().Str("component", "database").Str("driver", cfg.Driver).Logger(),
	}
}

// Driver returns the configured database driver.
func (f *Factory) Driver() string {
	return f.cfg.Driver
}

// Open connects to the configured database and builds its repositories.
// Migrations are not applied; callers decide whether to call Database.Migrate.
func (f *Factory) Open(ctx context.Context) (*Result, error) {
	switch f.cfg.Driver {
	case "sqlite":
		return f.openSQLite(ctx)
	case "postgres":
		return f.openPostgres(ctx)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", f.cfg.Driver)
	}
}

// Migrations returns the embedded migrations for the configured driver.
func (f *Factory) Migrations() ([]repository.Migration, error) {
	if f.cfg.IsEmbedded() {
		return sqlite.Migrations()
	}
	return postgres.Migrations()
}

func (f *Factory) openSQLite(ctx context.Context) (*Result, error) {
	sqlCfg := sqlite.DefaultConfig(f.cfg.Path)
	if f.cfg.JournalMode != "" {
		sqlCfg.JournalMode = f.cfg.JournalMode
	}
	if f.cfg.BusyTimeout > 0 {
		sqlCfg.BusyTimeout = f.cfg.BusyTimeout
	}
	if f.cfg.SynchronousMode != "" {
		sqlCfg.SynchronousMode = f.cfg.SynchronousMode
	}

	db, err := sqlite.NewDB(ctx, sqlCfg, f.logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Repos: &repository.Repositories{
			User:    sqlite.NewUserRepository(db),
			Session: sqlite.NewSessionRepository(db),
			Cart:    sqlite.NewCartRepository(db),
			Order:   sqlite.NewOrderRepository(db),
			Product: sqlite.NewProductRepository(db),
		},
		Database: db,
	}, nil
}

func (f *Factory) openPostgres(ctx context.Context) (*Result, error) {
	db, err := postgres.NewDB(ctx, f.cfg, f.logger)
	if err != nil {
		return nil, err
	}

	return &Result{
		Repos: &repository.Repositories{
			User:    postgres.NewUserRepository(db),
			Session: postgres.NewSessionRepository(db),
			Cart:    postgres.NewCartRepository(db),
			Order:   postgres.NewOrderRepository(db),
			Product: postgres.NewProductRepository(db),
		},
		Database: db,
	}, nil
}
