package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ThumbnailSize is the frame size written by FFmpeg.Thumbnail.
const ThumbnailSize = "640x360"

// MediaTool extracts a still frame and reads the running time of a video.
type MediaTool interface {
	Thumbnail(ctx context.Context, videoPath, outPath string) error
	Duration(ctx context.Context, videoPath string) (float64, error)
}

// FFmpeg shells out to the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	// Offset is the timestamp the thumbnail is taken at, e.g. "00:00:05".
	Offset string
}

func NewFFmpeg(ffmpegPath, ffprobePath, offset string) *FFmpeg {
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath, Offset: offset}
}

func (f *FFmpeg) Thumbnail(ctx context.Context, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-y",
		"-loglevel", "error",
		"-ss", f.Offset,
		"-i", videoPath,
		"-frames:v", "1",
		"-s", ThumbnailSize,
		outPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Duration returns the container duration in seconds.
func (f *FFmpeg) Duration(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		videoPath,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	var result struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", result.Format.Duration, err)
	}
	return d, nil
}
