package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the template when missing, initializes the database and creates
// the cover storage directory.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			config, err := shared.LoadConfig(configPath)
			if err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
			} else {
				r.config = config
				if err := r.config.ApplyEnv(".env"); err != nil {
					return err
				}
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	store, err := r.coverStore()
	if err != nil {
		return fmt.Errorf("failed to set up cover storage: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Config: %s\n", configPath)
	r.writePlain("✓ Database: %s\n", r.config.Database.Path)
	r.writePlain("✓ Cover storage: %s\n", store.Dir())
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify and credentials.openai in %s (or SPOTIFY_ID, SPOTIFY_SECRET, OPENAI_API_KEY)\n", configPath)
	r.writePlain("2. Run 'vibemix spotify auth'\n")
	return nil
}
