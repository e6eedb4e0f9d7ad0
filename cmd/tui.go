package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist syncing.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/plsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	registry, err := r.registry()
	if err != nil {
		return err
	}
	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	load := func() ([]models.Playlist, error) {
		playlists, err := registry.List()
		if err != nil {
			return nil, err
		}
		out := make([]models.Playlist, len(playlists))
		for i, pl := range playlists {
			out[i] = *pl
		}
		return out, nil
	}

	model := ui.NewModel(ctx, load, engine, r.syncOpts())
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// tuiCommand returns the top-level TUI command for interactive playlist syncing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for playlist syncing",
		Action:  r.TUI,
	}
}
