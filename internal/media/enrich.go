package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/artur/fetchbot/internal/logctx"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// Auto-scaled sample clips stay within these bounds.
	minSampleSec = 5
	maxSampleSec = 30

	// Fixed thumbnail offset when the duration is unknown.
	fallbackThumbSec = 1

	screenshotWorkers = 2
)

// Options selects which artifacts to derive.
type Options struct {
	Thumbnail       bool
	Sample          bool
	SampleDuration  int // seconds, 0 = auto-scaled to the source
	Screenshots     bool
	ScreenshotCount int
}

// Artifacts holds the derived files. Empty paths mean the artifact could not
// be produced; that is never an error.
type Artifacts struct {
	DurationSec float64
	ThumbPath   string
	SamplePath  string
	Shots       []string
}

// Cleanup removes every derived file. Safe to call on partial results.
func (a *Artifacts) Cleanup() {
	for _, p := range append([]string{a.ThumbPath, a.SamplePath}, a.Shots...) {
		if p != "" {
			os.Remove(p)
		}
	}
}

// Pipeline derives artifacts from a downloaded video, every step best-effort.
type Pipeline struct {
	tk  Toolkit
	dir string
}

// NewPipeline creates a Pipeline writing artifacts into dir.
func NewPipeline(tk Toolkit, dir string) *Pipeline {
	return &Pipeline{tk: tk, dir: dir}
}

// Enrich derives the requested artifacts. Tool failures degrade to missing
// artifacts; Enrich itself never fails.
func (p *Pipeline) Enrich(ctx context.Context, videoPath string, opts Options) Artifacts {
	logger := logctx.LoggerFromContext(ctx)

	var arts Artifacts

	duration, err := p.tk.Duration(ctx, videoPath)
	if err != nil {
		logger.Debug("duration probe failed", "path", videoPath, "err", err)
		duration = 0
	}
	arts.DurationSec = duration

	if opts.Thumbnail {
		arts.ThumbPath = p.thumbnail(ctx, videoPath, duration)
	}
	if opts.Sample {
		arts.SamplePath = p.sample(ctx, videoPath, duration, opts.SampleDuration)
	}
	if opts.Screenshots && opts.ScreenshotCount > 0 {
		arts.Shots = p.screenshots(ctx, videoPath, duration, opts.ScreenshotCount)
	}

	return arts
}

func (p *Pipeline) thumbnail(ctx context.Context, videoPath string, duration float64) string {
	logger := logctx.LoggerFromContext(ctx)

	at := thumbnailOffset(duration)
	out := p.artifactPath("thumb", ".jpg")

	if err := p.tk.ExtractFrame(ctx, videoPath, at, out, true); err == nil {
		return out
	}
	// Pre-input seek fails on some containers; retry with the slow seek
	if err := p.tk.ExtractFrame(ctx, videoPath, at, out, false); err != nil {
		logger.Debug("thumbnail extraction failed", "path", videoPath, "err", err)
		return ""
	}
	return out
}

func (p *Pipeline) sample(ctx context.Context, videoPath string, duration float64, requestedSec int) string {
	logger := logctx.LoggerFromContext(ctx)

	start, clipDur := sampleWindow(duration, requestedSec)
	if clipDur <= 0 {
		return ""
	}

	out := p.artifactPath("sample", ".mp4")

	if err := p.tk.Clip(ctx, videoPath, start, clipDur, out, false); err == nil {
		return out
	}
	// Stream copy can fail or produce an empty file; re-encode is slower but
	// works on anything ffmpeg can read
	if err := p.tk.Clip(ctx, videoPath, start, clipDur, out, true); err != nil {
		logger.Debug("sample clip failed", "path", videoPath, "err", err)
		return ""
	}
	return out
}

func (p *Pipeline) screenshots(ctx context.Context, videoPath string, duration float64, count int) []string {
	logger := logctx.LoggerFromContext(ctx)

	times := screenshotTimes(duration, count)

	shots := make([]string, len(times))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(screenshotWorkers)

	for i, at := range times {
		g.Go(func() error {
			out := p.artifactPath(fmt.Sprintf("shot_%d", i+1), ".jpg")
			if err := p.tk.ExtractFrame(ctx, videoPath, at, out, true); err != nil {
				// A failed frame is simply omitted
				logger.Debug("screenshot failed", "path", videoPath, "at", at, "err", err)
				return nil
			}
			mu.Lock()
			shots[i] = out
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var result []string
	for _, s := range shots {
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func (p *Pipeline) artifactPath(kind, ext string) string {
	return filepath.Join(p.dir, fmt.Sprintf("%s_%s%s", kind, uuid.NewString()[:8], ext))
}

// thumbnailOffset picks the frame time: the temporal midpoint when the
// duration is known, a fixed early offset otherwise.
func thumbnailOffset(duration float64) float64 {
	if duration > 0 {
		return duration / 2
	}
	return fallbackThumbSec
}

// sampleWindow picks the clip start and duration. With no explicit request
// the duration scales with the source, bounded to [minSampleSec,
// maxSampleSec]. The start offset is clamped so start+duration never exceeds
// the total.
func sampleWindow(total float64, requestedSec int) (start, dur float64) {
	dur = float64(requestedSec)
	if dur <= 0 {
		if total <= 0 {
			return 0, minSampleSec
		}
		dur = math.Round(total / 8)
		if dur < minSampleSec {
			dur = minSampleSec
		}
		if dur > maxSampleSec {
			dur = maxSampleSec
		}
	}

	if total <= 0 {
		return 0, dur
	}

	if dur >= total {
		return 0, total
	}

	start = total / 4
	if start+dur >= total {
		start = total - dur - 1
		if start < 0 {
			start = 0
		}
	}
	return start, dur
}

// screenshotTimes spaces count frames evenly: duration/(count+1) apart. With
// an unknown duration it falls back to a few fixed early offsets.
func screenshotTimes(duration float64, count int) []float64 {
	if duration <= 0 {
		fallback := []float64{5, 15, 30}
		if count < len(fallback) {
			fallback = fallback[:count]
		}
		return fallback
	}

	step := duration / float64(count+1)
	times := make([]float64, count)
	for i := range times {
		times[i] = step * float64(i+1)
	}
	return times
}
