// package formatter renders sync results to various formats (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
)

// FailuresToCSV converts a sync summary's failed tracks to CSV format with
// columns: Title, Artist, Duration, Key, Error
func FailuresToCSV(summary *tasks.SyncSummary) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Title", "Artist", "Duration", "Key", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, te := range summary.Errors {
		record := []string{
			te.Track.Title,
			te.Track.Artist,
			strconv.Itoa(te.Track.DurationSeconds),
			te.Key,
			te.Err.Error(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SummaryToText converts a sync summary to plain text format
func SummaryToText(summary *tasks.SyncSummary) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s (%s)\n", summary.Playlist.Label, summary.Playlist.Provider))
	buf.WriteString(fmt.Sprintf("Tracks: %d listed, %d already synced, %d queued\n", summary.Total, summary.AlreadyDone, summary.Queued))
	buf.WriteString(fmt.Sprintf("Result: %d succeeded, %d failed in %s\n", summary.Succeeded, summary.Failed, summary.Elapsed.Round(time.Millisecond)))

	if len(summary.Errors) > 0 {
		buf.WriteString("\nFailed tracks:\n")
		for i, te := range summary.Errors {
			buf.WriteString(fmt.Sprintf("%d. %s - %s: %v\n", i+1, te.Track.Artist, te.Track.Title, te.Err))
		}
	}

	return buf.Bytes()
}

// ToMetadataJSON generates a JSON representation of playlist metadata
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// WriteFailureReport writes a summary's failed tracks to a CSV file.
//
// Defaults to {label}_failures.csv, sanitized for the filesystem. Returns the
// written path, or an empty path when the summary has no failures.
func WriteFailureReport(summary *tasks.SyncSummary, path string) (string, error) {
	if len(summary.Errors) == 0 {
		return "", nil
	}
	if path == "" {
		path = shared.SanitizeFileName(summary.Playlist.Label) + "_failures.csv"
	}

	data, err := FailuresToCSV(summary)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// SyncManifest is the JSON document summarizing a multi-playlist pass.
type SyncManifest struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Playlists   []PlaylistManifest `json:"playlists"`
	Failures    []FailureManifest  `json:"failures,omitempty"`
}

// PlaylistManifest summarizes one playlist's pass within a manifest.
type PlaylistManifest struct {
	Label       string  `json:"label"`
	Provider    string  `json:"provider"`
	Total       int     `json:"total"`
	AlreadyDone int     `json:"already_done"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	ElapsedMS   int64   `json:"elapsed_ms"`
	Errors      []Entry `json:"errors,omitempty"`
}

// FailureManifest records a playlist whose pass could not run.
type FailureManifest struct {
	Label string `json:"label"`
	Error string `json:"error"`
}

// Entry is one failed track within a playlist manifest.
type Entry struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Error  string `json:"error"`
}

// WriteSyncManifest writes a JSON manifest for a multi-playlist pass.
//
// Defaults to sync_manifest_{epoch}.json. Returns the written path.
func WriteSyncManifest(result *tasks.SyncAllResult, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("sync_manifest_%d.json", time.Now().Unix())
	}

	manifest := SyncManifest{GeneratedAt: time.Now().UTC()}
	for _, s := range result.Summaries {
		pm := PlaylistManifest{
			Label:       s.Playlist.Label,
			Provider:    string(s.Playlist.Provider),
			Total:       s.Total,
			AlreadyDone: s.AlreadyDone,
			Succeeded:   s.Succeeded,
			Failed:      s.Failed,
			ElapsedMS:   s.Elapsed.Milliseconds(),
		}
		for _, te := range s.Errors {
			pm.Errors = append(pm.Errors, Entry{Title: te.Track.Title, Artist: te.Track.Artist, Error: te.Err.Error()})
		}
		manifest.Playlists = append(manifest.Playlists, pm)
	}
	for _, f := range result.Failures {
		manifest.Failures = append(manifest.Failures, FailureManifest{Label: f.Playlist.Label, Error: f.Err.Error()})
	}

	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate manifest JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest file: %w", err)
	}
	return path, nil
}
