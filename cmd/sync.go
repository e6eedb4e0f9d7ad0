package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/desertthunder/plsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync runs a sync pass for one playlist or, with --all, every tracked playlist.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	labelOrID := cmd.StringArg("playlist")
	syncAll := cmd.Bool("all")

	if labelOrID == "" && !syncAll {
		return fmt.Errorf("%w: playlist label or ID (or --all)", shared.ErrMissingArgument)
	}
	if labelOrID != "" && syncAll {
		return fmt.Errorf("%w: cannot combine a playlist argument with --all", shared.ErrInvalidArgument)
	}

	registry, err := r.registry()
	if err != nil {
		return err
	}
	engine, err := r.buildEngine()
	if err != nil {
		return err
	}

	opts := r.syncOpts()
	if v := cmd.Int("concurrency"); v > 0 {
		opts.Concurrency = int(v)
	}
	if v := cmd.String("output"); v != "" {
		opts.OutputDir = v
	}

	// Progress goroutine renders updates as they arrive.
	progressCh := make(chan tasks.ProgressUpdate, 50)
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.Compare:
				r.writePlain("🔍 %s\n", update.Message)
			case tasks.JobStart, tasks.JobRetry, tasks.JobResult:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	if syncAll {
		playlists, err := registry.List()
		if err != nil {
			close(progressCh)
			<-renderDone
			return err
		}
		tracked := make([]models.Playlist, len(playlists))
		for i, pl := range playlists {
			tracked[i] = *pl
		}

		result, err := engine.SyncAll(ctx, progressCh, tracked, opts)
		close(progressCh)
		<-renderDone
		if err != nil {
			return err
		}
		return r.reportSyncAll(cmd, result)
	}

	playlist, err := registry.Resolve(labelOrID)
	if err != nil {
		close(progressCh)
		<-renderDone
		return err
	}

	summary, err := engine.Sync(ctx, progressCh, *playlist, opts)
	close(progressCh)
	<-renderDone
	if err != nil {
		return err
	}
	return r.reportSummary(cmd, summary)
}

// reportSummary prints a pass summary and optionally writes a failure report.
func (r *Runner) reportSummary(cmd *cli.Command, summary *tasks.SyncSummary) error {
	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Playlist: %s\n", summary.Playlist.Label)
	r.writePlain("Tracks: %d listed, %d already synced, %d queued\n", summary.Total, summary.AlreadyDone, summary.Queued)

	result := fmt.Sprintf("%d succeeded, %d failed in %s", summary.Succeeded, summary.Failed, summary.Elapsed.Round(time.Second))
	if summary.Failed > 0 {
		result = ui.NewStyle("#FFA500").Render(result)
	} else {
		result = ui.NewBold("#04B575").Render(result)
	}
	r.writePlain("Result: %s\n", result)

	if summary.Failed > 0 {
		r.writePlain("\nFailed tracks:\n")
		for _, te := range summary.Errors {
			r.writePlain("  - %s - %s: %v\n", te.Track.Artist, te.Track.Title, te.Err)
		}
	}

	if path := cmd.String("report"); path != "" {
		written, err := formatter.WriteFailureReport(summary, path)
		if err != nil {
			return fmt.Errorf("sync completed but failed to write report: %w", err)
		}
		if written != "" {
			r.writePlain("\nFailure report written to %s\n", written)
		}
	}

	return nil
}

// reportSyncAll prints the aggregate of a multi-playlist pass and writes a manifest.
func (r *Runner) reportSyncAll(cmd *cli.Command, result *tasks.SyncAllResult) error {
	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	for _, s := range result.Summaries {
		r.writePlain("%s: %d succeeded, %d failed, %d already synced\n", s.Playlist.Label, s.Succeeded, s.Failed, s.AlreadyDone)
	}
	for _, f := range result.Failures {
		r.writePlain("%s: ✗ %v\n", f.Playlist.Label, f.Err)
	}

	manifestPath, err := formatter.WriteSyncManifest(result, cmd.String("manifest"))
	if err != nil {
		return fmt.Errorf("sync completed but failed to write manifest: %w", err)
	}
	r.writePlain("\nManifest written to %s\n", manifestPath)
	return nil
}

// syncCommand runs sync passes over tracked playlists
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync tracked playlists to local audio files",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Sync every tracked playlist",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Override the configured download directory",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Override the configured worker count",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Path for the failed-tracks CSV report",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "Path for the JSON manifest written with --all",
			},
		},
		Action: r.Sync,
	}
}
