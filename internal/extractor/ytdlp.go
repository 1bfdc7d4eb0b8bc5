package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/artur/fetchbot/internal/logctx"
)

const (
	listTimeout  = 60 * time.Second
	fetchTimeout = 15 * time.Minute
)

// Ytdlp drives the yt-dlp binary. It is the generic engine: it claims every
// URL, so it must come last in the engine list.
type Ytdlp struct {
	binPath string
}

// NewYtdlp creates a yt-dlp engine using the given binary path.
func NewYtdlp(binPath string) *Ytdlp {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Ytdlp{binPath: binPath}
}

func (y *Ytdlp) Supports(url string) bool {
	return true
}

// ytdlpInfo mirrors the subset of yt-dlp -J output we consume.
type ytdlpInfo struct {
	Title     string        `json:"title"`
	Duration  float64       `json:"duration"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Height         int     `json:"height"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	Vcodec         string  `json:"vcodec"`
	Acodec         string  `json:"acodec"`
}

// ListFormats runs yt-dlp -J and maps its JSON to Info.
func (y *Ytdlp) ListFormats(ctx context.Context, url string) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, y.binPath,
		"-J",
		"--no-warnings",
		"--no-playlist",
		url,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp list failed: %w: %s", err, firstLine(stderr.String()))
	}

	var raw ytdlpInfo
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	info := &Info{
		Title:        raw.Title,
		DurationSec:  raw.Duration,
		ThumbnailURL: raw.Thumbnail,
	}

	for _, f := range raw.Formats {
		if f.FormatID == "" {
			continue
		}

		size := f.Filesize
		if size == 0 {
			size = int64(f.FilesizeApprox)
		}

		ext := strings.ToLower(f.Ext)
		if ext == "" {
			ext = "mp4"
		}

		info.Formats = append(info.Formats, Format{
			ID:       f.FormatID,
			Ext:      ext,
			Height:   f.Height,
			Size:     size,
			HasVideo: f.Vcodec != "" && f.Vcodec != "none",
			HasAudio: f.Acodec != "" && f.Acodec != "none",
		})
	}

	return info, nil
}

// Fetch downloads the chosen format to outputBase.<ext>. The short output
// template keeps page titles out of the filesystem path.
func (y *Ytdlp) Fetch(ctx context.Context, url, formatID, outputBase string) (string, error) {
	logger := logctx.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	format := formatID
	if format == "" {
		format = "bv*+ba/bestvideo+bestaudio/best[ext=mp4]/best"
	}

	cmd := exec.CommandContext(ctx, y.binPath,
		"-f", format,
		"-o", outputBase+".%(ext)s",
		"--no-warnings",
		"--no-playlist",
		"--no-progress",
		"--restrict-filenames",
		"--merge-output-format", "mp4",
		"--print", "after_move:filepath",
		"--no-simulate",
		url,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running yt-dlp fetch", "url", url, "format", format)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp fetch failed: %w: %s", err, firstLine(stderr.String()))
	}

	finalPath := lastLine(stdout.String())
	if finalPath == "" {
		return "", fmt.Errorf("yt-dlp produced no output path")
	}

	return finalPath, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
