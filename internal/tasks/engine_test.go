package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/plsync/internal/ledger"
	"github.com/desertthunder/plsync/internal/media"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
)

// mockSource serves canned track listings keyed by playlist reference.
type mockSource struct {
	provider models.Provider
	tracks   map[string][]models.Track
	errs     map[string]error
}

func (m *mockSource) ListTracks(_ context.Context, ref string) ([]models.Track, error) {
	if err := m.errs[ref]; err != nil {
		return nil, err
	}
	return m.tracks[ref], nil
}

func (m *mockSource) Provider() models.Provider { return m.provider }

// mockFetcher simulates downloads, optionally failing the first N attempts per
// query, and tracks the peak number of concurrent calls.
type mockFetcher struct {
	mu        sync.Mutex
	attempts  map[string]int
	transient map[string]int   // fail the first N attempts with a transient error
	permanent map[string]error // always fail with this error
	delay     time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	counter     atomic.Int32
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		attempts:  make(map[string]int),
		transient: make(map[string]int),
		permanent: make(map[string]error),
	}
}

func (m *mockFetcher) Fetch(_ context.Context, query, destDir string) (string, error) {
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		max := m.maxInFlight.Load()
		if cur <= max || m.maxInFlight.CompareAndSwap(max, cur) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.attempts[query]++
	n := m.attempts[query]
	failN := m.transient[query]
	permErr := m.permanent[query]
	m.mu.Unlock()

	if permErr != nil {
		return "", permErr
	}
	if n <= failN {
		return "", fmt.Errorf("%w: simulated transient failure", shared.ErrFetch)
	}

	path := filepath.Join(destDir, fmt.Sprintf("raw-%d.m4a", m.counter.Add(1)))
	if err := os.WriteFile(path, []byte("raw"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (m *mockFetcher) attemptsFor(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[query]
}

// mockConverter writes the destination file and removes the raw input.
type mockConverter struct {
	err   error
	calls atomic.Int32
}

func (m *mockConverter) Convert(_ context.Context, rawPath, destPath, _ string) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	if err := os.WriteFile(destPath, []byte("audio"), 0644); err != nil {
		return "", err
	}
	os.Remove(rawPath)
	return destPath, nil
}

// failingLedger reads through to a real ledger but refuses every commit.
type failingLedger struct {
	*ledger.Ledger
	commitErr error
}

func (l *failingLedger) Commit(playlistID, key, filePath string) error { return l.commitErr }

func testPlaylist(ref string) models.Playlist {
	return models.Playlist{
		ID:        "pl_" + ref,
		Provider:  models.ProviderSpotify,
		SourceRef: ref,
		Label:     "Test " + ref,
	}
}

func testOpts(t *testing.T) SyncOpts {
	t.Helper()
	return SyncOpts{
		Concurrency:    3,
		MaxRetries:     3,
		AttemptTimeout: time.Minute,
		RetryBackoff:   time.Millisecond,
		OutputDir:      t.TempDir(),
		Format:         "mp3",
	}
}

func newTestEngine(t *testing.T, src services.Source, fetcher media.Fetcher, converter media.Converter) (*Engine, *ledger.Ledger) {
	t.Helper()
	db := tu.MustOpenDB(t)
	ldg := ledger.NewLedger(db)
	return NewEngine(services.NewResolver(src), fetcher, converter, nil, ldg, nil), ldg
}

func TestEngineSyncHappyPath(t *testing.T) {
	tracks := []models.Track{
		track("Around the World", "Daft Punk", 428),
		track("One More Time", "Daft Punk", 320),
		track("Aerodynamic", "Daft Punk", 212),
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	fetcher := newMockFetcher()
	converter := &mockConverter{}
	engine, ldg := newTestEngine(t, src, fetcher, converter)

	pl := testPlaylist("mix")
	summary, err := engine.Sync(context.Background(), nil, pl, testOpts(t))
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Total != 3 || summary.Queued != 3 || summary.Succeeded != 3 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	count, err := ldg.Count(pl.ID)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 committed tracks, got %d", count)
	}
}

func TestEngineSyncSkipsCompleted(t *testing.T) {
	tracks := []models.Track{
		track("Around the World", "Daft Punk", 428),
		track("One More Time", "Daft Punk", 320),
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	fetcher := newMockFetcher()
	engine, ldg := newTestEngine(t, src, fetcher, &mockConverter{})

	pl := testPlaylist("mix")
	if err := ldg.Commit(pl.ID, keyOf(tracks[0]), "/tmp/existing.mp3"); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	summary, err := engine.Sync(context.Background(), nil, pl, testOpts(t))
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if summary.AlreadyDone != 1 || summary.Queued != 1 || summary.Succeeded != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	// A second pass finds nothing to do.
	summary, err = engine.Sync(context.Background(), nil, pl, testOpts(t))
	if err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	if summary.Queued != 0 || summary.AlreadyDone != 2 {
		t.Errorf("expected converged pass, got %+v", summary)
	}
}

func TestEngineSyncRetriesTransientFailure(t *testing.T) {
	tr := track("Harder Better", "Daft Punk", 224)
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": {tr}}}
	fetcher := newMockFetcher()
	query := media.SimplifySearchQuery(tr.Title, tr.Artist)
	fetcher.transient[query] = 2 // succeed on the third and final attempt

	engine, ldg := newTestEngine(t, src, fetcher, &mockConverter{})
	pl := testPlaylist("mix")

	progress := make(chan ProgressUpdate, 64)
	summary, err := engine.Sync(context.Background(), progress, pl, testOpts(t))
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Errorf("expected success on last attempt, got %+v", summary)
	}
	if got := fetcher.attemptsFor(query); got != 3 {
		t.Errorf("expected 3 fetch attempts, got %d", got)
	}
	count, _ := ldg.Count(pl.ID)
	if count != 1 {
		t.Errorf("expected exactly one commit, got %d", count)
	}

	retries := 0
	for len(progress) > 0 {
		if u := <-progress; u.Phase == JobRetry {
			retries++
		}
	}
	if retries != 2 {
		t.Errorf("expected 2 retry updates, got %d", retries)
	}
}

func TestEngineSyncExhaustionRecordsFailure(t *testing.T) {
	tr := track("Obscure B-Side", "Nobody", 200)
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": {tr}}}
	fetcher := newMockFetcher()
	query := media.SimplifySearchQuery(tr.Title, tr.Artist)
	fetcher.permanent[query] = fmt.Errorf("%w: %q", shared.ErrNoMatch, query)

	engine, ldg := newTestEngine(t, src, fetcher, &mockConverter{})
	pl := testPlaylist("mix")

	opts := testOpts(t)
	opts.MaxRetries = 2
	summary, err := engine.Sync(context.Background(), nil, pl, opts)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Succeeded != 0 || summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected 1 track error, got %d", len(summary.Errors))
	}

	var exhausted *retry.ExhaustedError
	if !errors.As(summary.Errors[0].Err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", summary.Errors[0].Err)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", exhausted.Attempts)
	}
	if !errors.Is(summary.Errors[0].Err, shared.ErrNoMatch) {
		t.Errorf("expected ErrNoMatch in chain, got %v", summary.Errors[0].Err)
	}

	// Failed tracks never reach the ledger.
	count, _ := ldg.Count(pl.ID)
	if count != 0 {
		t.Errorf("expected empty ledger, got %d entries", count)
	}
}

func TestEngineSyncConcurrencyBound(t *testing.T) {
	var tracks []models.Track
	for i := 0; i < 8; i++ {
		tracks = append(tracks, track(fmt.Sprintf("Track %d", i), "Various", 180+i*5))
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	fetcher := newMockFetcher()
	fetcher.delay = 20 * time.Millisecond

	engine, _ := newTestEngine(t, src, fetcher, &mockConverter{})

	opts := testOpts(t)
	opts.Concurrency = 2
	summary, err := engine.Sync(context.Background(), nil, testPlaylist("mix"), opts)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Succeeded != 8 {
		t.Errorf("expected 8 successes, got %d", summary.Succeeded)
	}
	if max := fetcher.maxInFlight.Load(); max > 2 {
		t.Errorf("concurrency bound violated: %d jobs in flight", max)
	}
}

func TestEngineSyncCollapsesDuplicateListing(t *testing.T) {
	tracks := []models.Track{
		track("One More Time", "Daft Punk", 320),
		track("ONE MORE TIME", "daft punk", 321),
		track("Aerodynamic", "Daft Punk", 212),
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	engine, ldg := newTestEngine(t, src, newMockFetcher(), &mockConverter{})

	pl := testPlaylist("mix")
	summary, err := engine.Sync(context.Background(), nil, pl, testOpts(t))
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Total != 3 || summary.Queued != 2 || summary.Succeeded != 2 {
		t.Errorf("expected duplicate collapsed, got %+v", summary)
	}
	count, _ := ldg.Count(pl.ID)
	if count != 2 {
		t.Errorf("expected 2 ledger entries, got %d", count)
	}
}

func TestEngineSyncCancelledAdmitsNoJobs(t *testing.T) {
	tracks := []models.Track{
		track("Around the World", "Daft Punk", 428),
		track("One More Time", "Daft Punk", 320),
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	fetcher := newMockFetcher()
	engine, _ := newTestEngine(t, src, fetcher, &mockConverter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := engine.Sync(ctx, nil, testPlaylist("mix"), testOpts(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("no jobs should have run, got %+v", summary)
	}
	if fetcher.counter.Load() != 0 {
		t.Errorf("fetcher should not have been called")
	}
}

func TestEngineSyncLedgerCommitFailureFailsJob(t *testing.T) {
	tr := track("Around the World", "Daft Punk", 428)
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": {tr}}}
	fetcher := newMockFetcher()
	query := media.SimplifySearchQuery(tr.Title, tr.Artist)

	db := tu.MustOpenDB(t)
	ldg := ledger.NewLedger(db)
	broken := &failingLedger{Ledger: ldg, commitErr: fmt.Errorf("%w: disk I/O error", shared.ErrLedgerIO)}
	engine := NewEngine(services.NewResolver(src), fetcher, &mockConverter{}, nil, broken, nil)

	pl := testPlaylist("mix")
	opts := testOpts(t)
	opts.MaxRetries = 2
	summary, err := engine.Sync(context.Background(), nil, pl, opts)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if summary.Succeeded != 0 || summary.Failed != 1 {
		t.Errorf("expected the job to fail, got %+v", summary)
	}
	if len(summary.Errors) != 1 {
		t.Fatalf("expected 1 track error, got %d", len(summary.Errors))
	}
	if !errors.Is(summary.Errors[0].Err, shared.ErrLedgerIO) {
		t.Errorf("expected ErrLedgerIO in chain, got %v", summary.Errors[0].Err)
	}
	// Commit failures are transient; the job retries before giving up.
	if got := fetcher.attemptsFor(query); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}

	// The track stays missing for the next run.
	count, _ := ldg.Count(pl.ID)
	if count != 0 {
		t.Errorf("expected empty ledger, got %d entries", count)
	}
	if ok, _ := ldg.Contains(pl.ID, summary.Errors[0].Key); ok {
		t.Errorf("failed track must not be recorded as complete")
	}
}

func TestEngineSyncCancelStopsRetries(t *testing.T) {
	tr := track("Obscure B-Side", "Nobody", 200)
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": {tr}}}
	fetcher := newMockFetcher()
	fetcher.delay = 30 * time.Millisecond
	query := media.SimplifySearchQuery(tr.Title, tr.Artist)
	fetcher.permanent[query] = fmt.Errorf("%w: %q", shared.ErrNoMatch, query)

	engine, ldg := newTestEngine(t, src, fetcher, &mockConverter{})
	pl := testPlaylist("mix")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(10*time.Millisecond, cancel)

	opts := testOpts(t)
	opts.RetryBackoff = 50 * time.Millisecond
	summary, err := engine.Sync(ctx, nil, pl, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// Cancellation lands during attempt 1: that attempt finishes, but no
	// backoff sleep or further attempt runs.
	if got := fetcher.attemptsFor(query); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
	if summary.Failed != 1 {
		t.Errorf("expected the interrupted job recorded as failed, got %+v", summary)
	}
	count, _ := ldg.Count(pl.ID)
	if count != 0 {
		t.Errorf("expected empty ledger, got %d entries", count)
	}
}

func TestEngineSyncCancelDuringFullPool(t *testing.T) {
	var tracks []models.Track
	for i := 0; i < 4; i++ {
		tracks = append(tracks, track(fmt.Sprintf("Track %d", i), "Various", 180+i*5))
	}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	fetcher := newMockFetcher()
	fetcher.delay = 30 * time.Millisecond

	engine, _ := newTestEngine(t, src, fetcher, &mockConverter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(10*time.Millisecond, cancel)

	opts := testOpts(t)
	opts.Concurrency = 1
	summary, err := engine.Sync(ctx, nil, testPlaylist("mix"), opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// Job 1 is in flight when the cancel lands; job 2 sits blocked in
	// admission and must not start once the slot frees up.
	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Errorf("expected only the in-flight job to complete, got %+v", summary)
	}
	if got := fetcher.counter.Load(); got != 1 {
		t.Errorf("expected 1 download, got %d", got)
	}
}

func TestEngineSyncUnknownProvider(t *testing.T) {
	src := &mockSource{provider: models.ProviderSpotify}
	engine, _ := newTestEngine(t, src, newMockFetcher(), &mockConverter{})

	pl := testPlaylist("mix")
	pl.Provider = models.ProviderYouTube

	if _, err := engine.Sync(context.Background(), nil, pl, testOpts(t)); !errors.Is(err, shared.ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestEngineSyncListingFailure(t *testing.T) {
	src := &mockSource{
		provider: models.ProviderSpotify,
		errs:     map[string]error{"gone": shared.ErrPlaylistNotFound},
	}
	engine, _ := newTestEngine(t, src, newMockFetcher(), &mockConverter{})

	if _, err := engine.Sync(context.Background(), nil, testPlaylist("gone"), testOpts(t)); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

func TestEngineSyncAllIsolatesFailures(t *testing.T) {
	src := &mockSource{
		provider: models.ProviderSpotify,
		tracks: map[string][]models.Track{
			"good": {track("Around the World", "Daft Punk", 428)},
		},
		errs: map[string]error{"bad": shared.ErrPlaylistNotFound},
	}
	engine, _ := newTestEngine(t, src, newMockFetcher(), &mockConverter{})

	playlists := []models.Playlist{testPlaylist("bad"), testPlaylist("good")}
	result, err := engine.SyncAll(context.Background(), nil, playlists, testOpts(t))
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}

	if len(result.Failures) != 1 || result.Failures[0].Playlist.SourceRef != "bad" {
		t.Errorf("expected one failure for %q, got %+v", "bad", result.Failures)
	}
	if len(result.Summaries) != 1 || result.Summaries[0].Succeeded != 1 {
		t.Errorf("expected the good playlist to sync, got %+v", result.Summaries)
	}
}

func TestEngineSyncProgressPhases(t *testing.T) {
	tracks := []models.Track{track("Around the World", "Daft Punk", 428)}
	src := &mockSource{provider: models.ProviderSpotify, tracks: map[string][]models.Track{"mix": tracks}}
	engine, _ := newTestEngine(t, src, newMockFetcher(), &mockConverter{})

	progress := make(chan ProgressUpdate, 64)
	if _, err := engine.Sync(context.Background(), progress, testPlaylist("mix"), testOpts(t)); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	seen := make(map[Phase]bool)
	for len(progress) > 0 {
		seen[(<-progress).Phase] = true
	}
	for _, want := range []Phase{FetchSource, Compare, JobStart, JobResult, Summary} {
		if !seen[want] {
			t.Errorf("expected a %s update", want)
		}
	}
}
