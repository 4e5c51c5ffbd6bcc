package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	return r.writePlain("✓ Wrote %s\n", r.configPath)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	_, db, err := r.openStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	statuses, err := shared.Migrations(ctx, db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, m := range statuses {
		mark := " "
		if m.Applied {
			mark = "✓"
		}
		r.writePlain("[%s] %03d %s\n", mark, m.Version, m.Name)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, err := shared.RollbackMigration(ctx, db)
	if err != nil {
		return err
	}

	r.logger.Info("rolled back migration", "version", version)
	return r.writePlain("✓ Rolled back migration %03d\n", version)
}
