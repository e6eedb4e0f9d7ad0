// YouTube implementation of [Source] backed by yt-dlp's flat playlist extraction.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// YouTubeSource implements [Source] for YouTube playlists by shelling out to
// yt-dlp. Flat extraction lists entries without resolving each video, so one
// invocation covers the whole playlist regardless of length.
type YouTubeSource struct {
	bin string
}

// NewYouTubeSource creates a YouTubeSource. An empty bin resolves "yt-dlp" on PATH.
func NewYouTubeSource(bin string) *YouTubeSource {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &YouTubeSource{bin: bin}
}

// Provider returns [models.ProviderYouTube].
func (y *YouTubeSource) Provider() models.Provider {
	return models.ProviderYouTube
}

// ListTracks runs yt-dlp against the playlist URL and parses its JSON dump.
func (y *YouTubeSource) ListTracks(ctx context.Context, ref string) ([]models.Track, error) {
	cmd := exec.CommandContext(ctx, y.bin,
		"--flat-playlist",
		"--dump-single-json",
		"--no-warnings",
		ref,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if strings.Contains(msg, "does not exist") || strings.Contains(msg, "Unable to recognize playlist") {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, ref)
		}
		return nil, fmt.Errorf("%w: yt-dlp failed: %v", shared.ErrSourceUnavailable, err)
	}

	tracks, err := parseFlatPlaylist(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceUnavailable, err)
	}
	return tracks, nil
}

// flatPlaylist mirrors the subset of yt-dlp's --dump-single-json output we consume.
type flatPlaylist struct {
	Title   string      `json:"title"`
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Channel  string  `json:"channel"`
	Duration float64 `json:"duration"`
}

// parseFlatPlaylist converts a yt-dlp flat playlist dump into tracks, preserving
// playlist order. Entries with no usable title (deleted or private videos) are skipped.
func parseFlatPlaylist(data []byte) ([]models.Track, error) {
	var playlist flatPlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	var tracks []models.Track
	for _, entry := range playlist.Entries {
		title, artist := splitVideoTitle(entry)
		if title == "" {
			continue
		}
		tracks = append(tracks, models.Track{
			Title:           title,
			Artist:          artist,
			DurationSeconds: int(entry.Duration),
		})
	}

	return tracks, nil
}

// splitVideoTitle derives (title, artist) from a video entry. Music uploads
// commonly use "Artist - Title"; otherwise the uploader stands in for the
// artist, with YouTube Music's " - Topic" suffix stripped.
func splitVideoTitle(entry flatEntry) (title, artist string) {
	raw := strings.TrimSpace(entry.Title)
	if raw == "" || strings.EqualFold(raw, "[deleted video]") || strings.EqualFold(raw, "[private video]") {
		return "", ""
	}

	if before, after, found := strings.Cut(raw, " - "); found {
		artist = strings.TrimSpace(before)
		title = strings.TrimSpace(after)
		if artist != "" && title != "" {
			return title, artist
		}
	}

	artist = entry.Channel
	if artist == "" {
		artist = entry.Uploader
	}
	artist = strings.TrimSuffix(strings.TrimSpace(artist), " - Topic")
	return raw, artist
}
