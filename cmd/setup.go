package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotauth/internal/shared"
	"github.com/desertthunder/spotauth/internal/store"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set credentials.spotify.client_id to your app's client ID\n")
	r.writePlain("2. Register %s as a redirect URI for the app\n", shared.DefaultConfig().Credentials.Spotify.RedirectURI)
	r.writePlain("3. Run 'spotauth login'\n")
	return nil
}

// SetupDatabase opens the configured token store, running migrations for the sqlite driver.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.cfg()
	if err := config.Validate(); err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		return r.rollbackDatabase(config.Database)
	}

	r.logger.Info("initializing token store", "driver", config.Database.Driver, "path", config.Database.Path)

	s, err := store.Open(config.Database)
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("failed to close token store: %w", err)
	}

	r.logger.Infof("setup complete for %v store: %v", config.Database.Driver, config.Database.Path)
	return r.writePlain("✓ Token store ready (%s)\n", config.Database.Driver)
}

func (r *Runner) rollbackDatabase(cfg shared.DatabaseConfig) error {
	if cfg.Driver != "sqlite" && cfg.Driver != "" {
		return fmt.Errorf("%w: --rollback requires the sqlite driver, got %q", shared.ErrInvalidArgument, cfg.Driver)
	}

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	r.logger.Warn("rolled back latest migration", "path", cfg.Path)
	return r.writePlain("✓ Rolled back the latest migration (%s)\n", cfg.Path)
}
