package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/ledger"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistAdd registers a playlist for syncing.
//
// The provider is inferred from the reference URL unless --provider is given.
// Spotify references are normalized to their bare playlist ID.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("ref")
	if ref == "" {
		return fmt.Errorf("%w: playlist reference (URL or ID)", shared.ErrMissingArgument)
	}
	label := cmd.String("label")
	if label == "" {
		return fmt.Errorf("%w: --label", shared.ErrMissingArgument)
	}

	var provider models.Provider
	var err error
	if name := cmd.String("provider"); name != "" {
		if provider, err = models.ParseProvider(name); err != nil {
			return err
		}
	} else if provider, err = models.InferProvider(ref); err != nil {
		return fmt.Errorf("%w: pass --provider to disambiguate", err)
	}

	if provider == models.ProviderSpotify {
		if ref, err = services.ExtractSpotifyPlaylistID(ref); err != nil {
			return err
		}
	}

	registry, err := r.registry()
	if err != nil {
		return err
	}

	playlist := &models.Playlist{
		Provider:  provider,
		SourceRef: ref,
		Label:     label,
	}
	if err := registry.Create(playlist); err != nil {
		return fmt.Errorf("failed to register playlist: %w", err)
	}

	r.logger.Info("playlist registered", "id", playlist.ID, "label", label, "provider", provider)
	r.writePlain("✓ Tracking '%s' (%s: %s)\n", label, provider, ref)
	return nil
}

// PlaylistRemove untracks a playlist and clears its completion records.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	labelOrID := cmd.StringArg("playlist")
	if labelOrID == "" {
		return fmt.Errorf("%w: playlist label or ID", shared.ErrMissingArgument)
	}

	registry, err := r.registry()
	if err != nil {
		return err
	}
	playlist, err := registry.Resolve(labelOrID)
	if err != nil {
		return err
	}

	if err := registry.Delete(playlist.ID); err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}
	if err := ledger.NewLedger(db).Remove(playlist.ID); err != nil {
		return err
	}

	r.logger.Info("playlist removed", "id", playlist.ID, "label", playlist.Label)
	r.writePlain("✓ Stopped tracking '%s'\n", playlist.Label)
	return nil
}

// PlaylistList prints all tracked playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	registry, err := r.registry()
	if err != nil {
		return err
	}
	playlists, err := registry.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists tracked. Add one with 'plsync playlist add'.\n")
		return nil
	}

	r.writePlainHeader("Tracked Playlists")
	for _, pl := range playlists {
		r.writePlain("%d. %s (%s: %s)\n", pl.Sequence, pl.Label, pl.Provider, pl.SourceRef)
	}
	return nil
}

// playlistCommand handles playlist registry operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage tracked playlists",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Track a playlist for syncing",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "ref",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "label",
						Aliases:  []string{"l"},
						Usage:    "Unique human-readable name for the playlist",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Source provider (spotify or youtube)",
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Stop tracking a playlist and forget its history",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "playlist",
					},
				},
				Action: r.PlaylistRemove,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tracked playlists",
				Flags: []cli.Flag{
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
				Action: r.PlaylistList,
			},
		},
	}
}
