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
)

// FFmpegConverter implements [Converter] by shelling out to ffmpeg.
//
// Output is written to a temporary sibling file and renamed into place on
// success, so a killed or failed conversion never leaves a partial file at the
// destination path.
type FFmpegConverter struct {
	bin string
}

// NewFFmpegConverter creates a converter. An empty bin resolves "ffmpeg" on PATH.
func NewFFmpegConverter(bin string) *FFmpegConverter {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpegConverter{bin: bin}
}

// Convert transcodes rawPath to destPath at the given bitrate. The target
// codec and muxer follow from destPath's extension. The raw file is removed
// after a successful conversion.
func (c *FFmpegConverter) Convert(ctx context.Context, rawPath, destPath, bitrate string) (string, error) {
	format := strings.TrimPrefix(filepath.Ext(destPath), ".")
	tmpPath := destPath + ".part"
	args, err := convertArgs(rawPath, tmpPath, format, bitrate)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrConversion, err)
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(tmpPath)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: converting %s", shared.ErrTimeout, filepath.Base(rawPath))
		}
		return "", fmt.Errorf("%w: %v: %s", shared.ErrConversion, err, strings.TrimSpace(stderr.String()))
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %v", shared.ErrConversion, err)
	}

	os.Remove(rawPath)
	return destPath, nil
}

// audioCodecs maps supported output formats to their ffmpeg encoder and muxer.
var audioCodecs = map[string]struct{ codec, muxer string }{
	"mp3":  {"libmp3lame", "mp3"},
	"m4a":  {"aac", "ipod"},
	"opus": {"libopus", "opus"},
	"ogg":  {"libvorbis", "ogg"},
	"flac": {"flac", "flac"},
}

// convertArgs builds the ffmpeg argument list for an audio-only transcode to
// the given format. Unsupported formats are rejected rather than silently
// encoded as something else.
func convertArgs(rawPath, outPath, format, bitrate string) ([]string, error) {
	target, ok := audioCodecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported output format %q", shared.ErrConversion, format)
	}

	args := []string{
		"-y",
		"-i", rawPath,
		"-vn",
		"-codec:a", target.codec,
	}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	// ffmpeg picks the muxer from the extension; the temp file hides the real
	// one behind the ".part" suffix, so pass the muxer explicitly.
	args = append(args, "-f", target.muxer, outPath)
	return args, nil
}
