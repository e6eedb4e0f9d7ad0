package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/time/rate"
)

// YTDLPFetcher implements [Fetcher] by shelling out to yt-dlp: one invocation
// to resolve the best search hit to a video ID, a second to download its audio.
//
// Searches share a rate limiter so concurrent jobs don't hammer the search
// endpoint and trip throttling.
type YTDLPFetcher struct {
	bin     string
	limiter *rate.Limiter
}

// NewYTDLPFetcher creates a fetcher. An empty bin resolves "yt-dlp" on PATH;
// searchesPerSecond <= 0 defaults to 1.
func NewYTDLPFetcher(bin string, searchesPerSecond float64) *YTDLPFetcher {
	if bin == "" {
		bin = "yt-dlp"
	}
	if searchesPerSecond <= 0 {
		searchesPerSecond = 1
	}
	return &YTDLPFetcher{
		bin:     bin,
		limiter: rate.NewLimiter(rate.Limit(searchesPerSecond), 1),
	}
}

// Fetch locates the top search hit for query and downloads its audio into destDir.
// Returns the downloaded file's path.
func (f *YTDLPFetcher) Fetch(ctx context.Context, query, destDir string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFetch, err)
	}

	videoID, err := f.search(ctx, query)
	if err != nil {
		return "", err
	}

	return f.download(ctx, videoID, destDir)
}

// search resolves a query to a video ID via ytsearch1.
func (f *YTDLPFetcher) search(ctx context.Context, query string) (string, error) {
	out, err := f.run(ctx, searchArgs(query))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: search for %q", shared.ErrTimeout, query)
		}
		return "", fmt.Errorf("%w: search failed: %v", shared.ErrFetch, err)
	}

	videoID := strings.TrimSpace(out)
	if videoID == "" {
		return "", fmt.Errorf("%w: %q", shared.ErrNoMatch, query)
	}
	return videoID, nil
}

// download fetches the video's best audio stream into destDir and returns the
// resulting file path, as printed by yt-dlp.
func (f *YTDLPFetcher) download(ctx context.Context, videoID, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFetch, err)
	}

	out, err := f.run(ctx, downloadArgs(videoID, destDir))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: download of %s", shared.ErrTimeout, videoID)
		}
		return "", fmt.Errorf("%w: download failed: %v", shared.ErrFetch, err)
	}

	// --print after_move:filepath emits the final path as the last non-empty line.
	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: yt-dlp reported no output file", shared.ErrFetch)
	}
	path := strings.TrimSpace(out)
	if idx := strings.LastIndexByte(path, '\n'); idx >= 0 {
		path = strings.TrimSpace(path[idx+1:])
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: downloaded file missing: %v", shared.ErrFetch, err)
	}
	return path, nil
}

// run executes yt-dlp and returns stdout. Context cancellation kills the process.
func (f *YTDLPFetcher) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, f.bin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// searchArgs builds the argument list for resolving a query to a video ID.
func searchArgs(query string) []string {
	return []string{
		"ytsearch1:" + query,
		"--get-id",
		"--skip-download",
		"--no-warnings",
	}
}

// downloadArgs builds the argument list for downloading a video's audio stream.
func downloadArgs(videoID, destDir string) []string {
	return []string{
		"https://www.youtube.com/watch?v=" + videoID,
		"--format", "bestaudio[ext=m4a]/bestaudio[ext=webm]/bestaudio/best",
		"--output", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-playlist",
		"--no-mtime",
		"--no-warnings",
		"--quiet",
		"--print", "after_move:filepath",
		"--no-simulate",
	}
}
