package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/media"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// SyncOpts contains configuration for a sync pass.
type SyncOpts struct {
	Concurrency    int           // Concurrent download jobs (default: 3)
	MaxRetries     int           // Total attempts per job, including the first (default: 3)
	AttemptTimeout time.Duration // Wall-clock budget per attempt (default: 5m)
	RetryBackoff   time.Duration // Initial delay before the first retry (default: 1s)
	OutputDir      string        // Directory receiving finished audio files
	Format         string        // Output audio format (default: mp3)
	Bitrate        string        // Target bitrate, e.g. "192k" (empty: encoder default)
}

// TrackError records a job that exhausted its attempts.
type TrackError struct {
	Track models.Track
	Key   string
	Err   error
}

// SyncSummary aggregates the outcome of one sync pass over a playlist.
type SyncSummary struct {
	Playlist    models.Playlist
	Total       int           // Tracks in the remote listing
	AlreadyDone int           // Tracks whose key was already in the ledger
	Queued      int           // Jobs scheduled after reconciliation
	Succeeded   int           // Jobs that completed and committed
	Failed      int           // Jobs that exhausted their attempts
	Errors      []TrackError  // Per-track failure detail
	Elapsed     time.Duration // Wall-clock duration of the pass
}

// PlaylistFailure records a playlist whose sync could not run at all.
type PlaylistFailure struct {
	Playlist models.Playlist
	Err      error
}

// SyncAllResult aggregates per-playlist outcomes of a multi-playlist pass.
type SyncAllResult struct {
	Summaries []*SyncSummary
	Failures  []PlaylistFailure
}

// CompletionLedger is the subset of ledger operations the engine depends on.
// Satisfied by *ledger.Ledger.
type CompletionLedger interface {
	Load(playlistID string) (map[string]struct{}, error)
	Commit(playlistID, key, filePath string) error
}

// Engine orchestrates sync passes. Contains dependencies on playlist sources,
// the media pipeline, and the completion ledger.
type Engine struct {
	resolver  *services.Resolver
	fetcher   media.Fetcher
	converter media.Converter
	tagger    *media.Tagger
	ledger    CompletionLedger
	logger    *log.Logger
}

// NewEngine creates an Engine with the provided dependencies. A nil tagger
// disables metadata tagging; a nil logger falls back to the shared default.
func NewEngine(
	resolver *services.Resolver,
	fetcher media.Fetcher,
	converter media.Converter,
	tagger *media.Tagger,
	ldg CompletionLedger,
	logger *log.Logger,
) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		resolver:  resolver,
		fetcher:   fetcher,
		converter: converter,
		tagger:    tagger,
		ledger:    ldg,
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// Sync runs one full pass for a playlist: list, reconcile, then fetch the
// missing tracks through a bounded worker pool.
//
// A job failure never aborts the pass; it is recorded in the summary and the
// remaining jobs continue. Cancelling ctx stops admission of new jobs and
// further retry attempts while each in-flight attempt runs to completion, so
// the summary returned alongside ctx.Err() is still accurate for everything
// that ran.
func (e *Engine) Sync(ctx context.Context, progress chan<- ProgressUpdate, pl models.Playlist, opts SyncOpts) (*SyncSummary, error) {
	opts = withDefaults(opts)
	start := time.Now()

	src, err := e.resolver.For(pl.Provider)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchSourceUpdate(pl))
	tracks, err := src.ListTracks(ctx, pl.SourceRef)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks for %s: %w", pl.Label, err)
	}

	done, err := e.ledger.Load(pl.ID)
	if err != nil {
		return nil, err
	}

	missing := Reconcile(tracks, done)
	summary := &SyncSummary{
		Playlist:    pl,
		Total:       len(tracks),
		AlreadyDone: alreadyDone(tracks, done),
		Queued:      len(missing),
	}
	e.sendProgress(progress, compareUpdate(summary.Total, summary.AlreadyDone, summary.Queued))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(opts.Concurrency)

	for i, mt := range missing {
		// Admission gate: cancellation stops new jobs, running ones finish.
		if ctx.Err() != nil {
			break
		}

		step, mt := i+1, mt
		g.Go(func() error {
			// g.Go blocks while the pool is full, so a cancellation that
			// lands during that wait can still admit one job; re-check
			// before starting work.
			if ctx.Err() != nil {
				return nil
			}
			e.sendProgress(progress, jobStartUpdate(step, summary.Queued, mt.Track))

			path, err := e.runJob(ctx, progress, pl, mt, step, summary.Queued, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, TrackError{Track: mt.Track, Key: mt.Key, Err: err})
				e.logger.Error("sync job failed", "playlist", pl.Label, "track", mt.Title, "error", err)
				e.sendProgress(progress, jobFailedUpdate(step, summary.Queued, mt.Track, err))
			} else {
				summary.Succeeded++
				e.sendProgress(progress, jobSucceededUpdate(step, summary.Queued, mt.Track, path))
			}
			return nil
		})
	}

	g.Wait()

	summary.Elapsed = time.Since(start)
	e.sendProgress(progress, summaryUpdate(summary))
	return summary, ctx.Err()
}

// SyncAll runs Sync over each playlist in order. A playlist whose pass cannot
// start (unknown provider, listing fetch failure, ledger read failure) is
// recorded as a failure and the remaining playlists still run. Cancellation
// stops the iteration.
func (e *Engine) SyncAll(ctx context.Context, progress chan<- ProgressUpdate, playlists []models.Playlist, opts SyncOpts) (*SyncAllResult, error) {
	result := &SyncAllResult{}

	for _, pl := range playlists {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		summary, err := e.Sync(ctx, progress, pl, opts)
		if summary != nil {
			result.Summaries = append(result.Summaries, summary)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			result.Failures = append(result.Failures, PlaylistFailure{Playlist: pl, Err: err})
			e.logger.Error("playlist sync failed", "playlist", pl.Label, "error", err)
		}
	}

	return result, ctx.Err()
}

// runJob executes one track's fetch → convert → tag → commit pipeline with
// retries. The retry loop itself runs on ctx, so cancelling the pass aborts
// backoff sleeps and starts no further attempts; each individual attempt runs
// on a detached context bounded only by its own timeout, so cancellation never
// corrupts an attempt already running.
func (e *Engine) runJob(ctx context.Context, progress chan<- ProgressUpdate, pl models.Playlist, mt MissingTrack, step, total int, opts SyncOpts) (string, error) {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = opts.MaxRetries
	cfg.InitialBackoff = opts.RetryBackoff
	cfg.Notify = func(attempt int, err error) {
		e.sendProgress(progress, jobRetryUpdate(step, total, attempt, mt.Track, err))
	}

	var finalPath string
	attempt := func(jobCtx context.Context) error {
		// Detached timeout: a started attempt owns its full budget even
		// after the pass is cancelled.
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), opts.AttemptTimeout)
		defer cancel()

		query := media.SimplifySearchQuery(mt.Title, mt.Artist)
		rawPath, err := e.fetcher.Fetch(attemptCtx, query, opts.OutputDir)
		if err != nil {
			return err
		}

		destPath := media.DestPath(opts.OutputDir, mt.Artist, mt.Title, opts.Format)
		converted, err := e.converter.Convert(attemptCtx, rawPath, destPath, opts.Bitrate)
		if err != nil {
			return err
		}

		if e.tagger != nil {
			if err := e.tagger.WriteTags(converted, mt.Track); err != nil {
				e.logger.Warn("failed to tag file", "path", converted, "error", err)
			}
		}

		if err := e.ledger.Commit(pl.ID, mt.Key, converted); err != nil {
			return err
		}
		finalPath = converted
		return nil
	}

	err := retry.Do(ctx, cfg, retryable, attempt)
	return finalPath, err
}

// retryable classifies errors for the job retry loop. Everything transient is
// retried; only an explicit per-attempt cancellation is terminal.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func withDefaults(opts SyncOpts) SyncOpts {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 5 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "downloads"
	}
	if opts.Format == "" {
		opts.Format = "mp3"
	}
	return opts
}
