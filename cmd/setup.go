package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file if none exists and creates the local database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = shared.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return err
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s\n", shared.ExpandPath(config.Database.Path))
	r.writePlain("Service:  %s\n", config.API.BaseURL)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'tdx auth register' or 'tdx auth login'\n")
	r.writePlain("2. Run 'tdx tui' to open the dashboard\n")
	return nil
}
