// Package media derives thumbnails, sample clips and screenshots from
// downloaded videos via the external ffmpeg/ffprobe toolkit.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const toolTimeout = 2 * time.Minute

// Toolkit is the narrow surface of the external media tools. Every call is
// best-effort from the caller's point of view.
type Toolkit interface {
	// Duration returns the media duration in seconds.
	Duration(ctx context.Context, path string) (float64, error)

	// ExtractFrame writes a single frame taken at the given offset. fastSeek
	// places the seek before the input (fast, sometimes incompatible).
	ExtractFrame(ctx context.Context, path string, atSec float64, outPath string, fastSeek bool) error

	// Clip writes a [startSec, startSec+durationSec] slice of the input.
	// reencode transcodes with widely compatible codecs instead of stream copy.
	Clip(ctx context.Context, path string, startSec, durationSec float64, outPath string, reencode bool) error
}

// FFmpeg drives the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpeg creates a toolkit using the given binary paths (empty = $PATH).
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return 0, fmt.Errorf("ffprobe returned no duration")
	}

	duration, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", out, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("non-positive duration %f", duration)
	}

	return duration, nil
}

func (f *FFmpeg) ExtractFrame(ctx context.Context, path string, atSec float64, outPath string, fastSeek bool) error {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	at := formatSeconds(atSec)

	var args []string
	if fastSeek {
		args = []string{"-y", "-ss", at, "-i", path}
	} else {
		args = []string{"-y", "-i", path, "-ss", at}
	}
	args = append(args, "-frames:v", "1", "-q:v", "2", outPath)

	return runFFmpeg(ctx, f.FFmpegPath, args, outPath)
}

func (f *FFmpeg) Clip(ctx context.Context, path string, startSec, durationSec float64, outPath string, reencode bool) error {
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-ss", formatSeconds(startSec),
		"-i", path,
		"-t", formatSeconds(durationSec),
	}
	if reencode {
		args = append(args, "-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, outPath)

	return runFFmpeg(ctx, f.FFmpegPath, args, outPath)
}

func runFFmpeg(ctx context.Context, bin string, args []string, outPath string) error {
	cmd := exec.CommandContext(ctx, bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastStderrLine(stderr.String()))
	}

	// ffmpeg can exit zero with an empty output on stream-copy mismatches
	fi, err := os.Stat(outPath)
	if err != nil || fi.Size() == 0 {
		os.Remove(outPath)
		return fmt.Errorf("ffmpeg produced no output at %s", outPath)
	}

	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func lastStderrLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
