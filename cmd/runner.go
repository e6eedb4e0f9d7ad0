package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/ledger"
	"github.com/desertthunder/plsync/internal/media"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
	db     *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	DB     *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
		db:     opts.DB,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the runner's database connection if one was opened.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, syncCommand, statusCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database lazily opens the configured database with migrations applied.
// The connection is cached for the lifetime of the runner.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// registry returns a playlist registry over the configured database.
func (r *Runner) registry() (*ledger.PlaylistRegistry, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return ledger.NewPlaylistRegistry(db), nil
}

// resolver builds the source resolver from the configured credentials.
func (r *Runner) resolver() *services.Resolver {
	var sources []services.Source
	creds := r.config.Credentials.Spotify
	if creds.ClientID != "" && creds.ClientSecret != "" {
		sources = append(sources, services.NewSpotifySource(creds.ClientID, creds.ClientSecret, services.SpotifyOpts{}))
	}
	sources = append(sources, services.NewYouTubeSource(r.config.Tools.YTDLP))
	return services.NewResolver(sources...)
}

// buildEngine assembles the sync engine from the runner's configuration.
func (r *Runner) buildEngine() (*tasks.Engine, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	fetcher := media.NewYTDLPFetcher(r.config.Tools.YTDLP, r.config.Downloads.RateLimit)
	converter := media.NewFFmpegConverter(r.config.Tools.FFmpeg)

	return tasks.NewEngine(
		r.resolver(),
		fetcher,
		converter,
		media.NewTagger(),
		ledger.NewLedger(db),
		r.logger,
	), nil
}

// syncOpts maps the download configuration onto engine options.
func (r *Runner) syncOpts() tasks.SyncOpts {
	d := r.config.Downloads
	return tasks.SyncOpts{
		Concurrency:    d.Concurrency,
		MaxRetries:     d.MaxRetries,
		AttemptTimeout: time.Duration(d.AttemptTimeoutSeconds) * time.Second,
		OutputDir:      d.Dir,
		Format:         d.Format,
		Bitrate:        d.Bitrate,
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
