package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/plsync/internal/media"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	r.config = config

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupTools verifies the external media binaries are installed and reachable.
func (r *Runner) SetupTools(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking media tools", "ytdlp", r.config.Tools.YTDLP, "ffmpeg", r.config.Tools.FFmpeg)

	resolved, err := media.CheckBinaries(r.config.Tools.YTDLP, r.config.Tools.FFmpeg)
	for name, path := range resolved {
		r.writePlain("✓ %s: %s\n", name, path)
	}
	if err != nil {
		r.writePlain("✗ %v\n", err)
		return err
	}

	r.writePlainln("All media tools are available.")
	return nil
}

// setupCommand handles setup operations for configuration, database, and tools.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:    "tools",
				Aliases: []string{"check"},
				Usage:   "Verify yt-dlp and ffmpeg are installed",
				Action:  r.SetupTools,
			},
		},
	}
}
