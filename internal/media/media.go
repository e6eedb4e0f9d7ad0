// Package media wraps the external tools that locate, download, and convert audio.
//
// The sync engine treats these as opaque collaborators: a [Fetcher] turns a
// search query into a raw media file, a [Converter] turns that file into the
// target codec/bitrate, and [Tagger] stamps ID3 metadata on the result. All
// three shell out to battle-tested externals (yt-dlp, ffmpeg) rather than
// reimplementing extraction or transcoding.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/desertthunder/plsync/internal/shared"
)

// Fetcher locates a video for a search query and downloads its audio stream
// into destDir, returning the path of the raw media file.
type Fetcher interface {
	Fetch(ctx context.Context, query, destDir string) (string, error)
}

// Converter transcodes a raw media file to the target format and bitrate,
// returning the path of the converted file.
type Converter interface {
	Convert(ctx context.Context, rawPath, destPath, bitrate string) (string, error)
}

// DestPath builds the output path for a track: "<dir>/<artist> - <title>.<format>".
// Both components are sanitized, so distinct track keys never collide on disk.
func DestPath(dir, artist, title, format string) string {
	name := shared.SanitizeFileName(fmt.Sprintf("%s - %s", artist, title))
	name = strings.Trim(name, " -")
	if name == "" {
		name = "untitled"
	}
	return filepath.Join(dir, name+"."+format)
}

// CheckBinaries verifies that the external tools are available, returning a map
// of binary name to resolved path. Missing tools produce an error naming each.
func CheckBinaries(ytdlp, ffmpeg string) (map[string]string, error) {
	if ytdlp == "" {
		ytdlp = "yt-dlp"
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	found := make(map[string]string, 2)
	var missing []string
	for _, bin := range []string{ytdlp, ffmpeg} {
		path, err := exec.LookPath(bin)
		if err != nil {
			missing = append(missing, bin)
			continue
		}
		found[bin] = path
	}

	if len(missing) > 0 {
		return found, fmt.Errorf("required tools not found on PATH: %v", missing)
	}
	return found, nil
}
