package main

import (
	"context"

	"github.com/desertthunder/plsync/internal/ledger"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// playlistStatus is one row of the status report.
type playlistStatus struct {
	Label     string `json:"label"`
	Provider  string `json:"provider"`
	SourceRef string `json:"source_ref"`
	Completed int    `json:"completed"`
	Remote    int    `json:"remote,omitempty"`
	Missing   int    `json:"missing,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status reports how many tracks have been synced for each tracked playlist.
//
// By default counts come from the local ledger only. With --missing each
// playlist's remote listing is fetched and reconciled to report how many
// tracks a sync pass would queue, without downloading anything.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	withMissing := cmd.Bool("missing")

	registry, err := r.registry()
	if err != nil {
		return err
	}
	playlists, err := registry.List()
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	ldg := ledger.NewLedger(db)
	resolver := r.resolver()

	rows := make([]playlistStatus, 0, len(playlists))
	for _, pl := range playlists {
		count, err := ldg.Count(pl.ID)
		if err != nil {
			return err
		}
		row := playlistStatus{
			Label:     pl.Label,
			Provider:  string(pl.Provider),
			SourceRef: pl.SourceRef,
			Completed: count,
		}

		if withMissing {
			// A listing failure marks the row, never the whole report.
			if err := func() error {
				src, err := resolver.For(pl.Provider)
				if err != nil {
					return err
				}
				tracks, err := src.ListTracks(ctx, pl.SourceRef)
				if err != nil {
					return err
				}
				done, err := ldg.Load(pl.ID)
				if err != nil {
					return err
				}
				row.Remote = len(tracks)
				row.Missing = len(tasks.Reconcile(tracks, done))
				return nil
			}(); err != nil {
				row.Error = err.Error()
				r.logger.Warn("failed to list playlist", "playlist", pl.Label, "error", err)
			}
		}

		rows = append(rows, row)
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(rows) == 0 {
		r.writePlain("No playlists tracked. Add one with 'plsync playlist add'.\n")
		return nil
	}

	r.writePlainHeader("Sync Status")
	for _, row := range rows {
		r.writePlain("%s (%s): %d tracks synced", row.Label, row.Provider, row.Completed)
		switch {
		case row.Error != "":
			r.writePlain(" — listing failed: %s", row.Error)
		case withMissing:
			r.writePlain(", %d of %d remote missing", row.Missing, row.Remote)
		}
		r.writePlain("\n")
	}
	return nil
}

// statusCommand reports per-playlist sync progress
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show synced track counts for tracked playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "missing",
				Usage: "Fetch remote listings and report tracks still missing",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}
