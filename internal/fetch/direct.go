package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/artur/fetchbot/internal/media"
	"github.com/artur/fetchbot/internal/progress"
)

const (
	copyChunkSize   = 64 * 1024
	transferTimeout = 30 * time.Minute

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Direct downloads the URL as-is with a streaming GET. It applies when the
// probe already identified a playable file, or when the caller explicitly
// asked for a direct fetch.
type Direct struct {
	client      *http.Client
	dir         string
	maxFileSize int64
	interval    time.Duration
}

// NewDirect creates the direct-download strategy writing into dir.
func NewDirect(dir string, maxFileSize int64, interval time.Duration) *Direct {
	return &Direct{
		client:      &http.Client{Timeout: transferTimeout},
		dir:         dir,
		maxFileSize: maxFileSize,
		interval:    interval,
	}
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Applicable(req *Request) bool {
	if req.FormatID != "" {
		return false
	}
	if req.AssumePlayable {
		return true
	}
	return media.IsPlayableContentType(req.ContentType) ||
		media.IsVideoName(req.TargetName) || media.IsAudioName(req.TargetName) ||
		media.IsVideoName(req.URL) || media.IsAudioName(req.URL)
}

func (d *Direct) Attempt(ctx context.Context, req *Request, sink progress.Sink) (*Result, error) {
	dest := filepath.Join(d.dir, fmt.Sprintf("%d_%s", req.AccountID, req.TargetName))
	return d.fetchToFile(ctx, req.URL, dest, sink)
}

// fetchToFile streams url into dest, reporting progress and aborting as soon
// as the transferred byte count crosses the per-file ceiling. The partial
// file is removed on any failure.
func (d *Direct) fetchToFile(ctx context.Context, url, dest string, sink progress.Sink) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("requesting %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	written, err := d.copyWithProgress(out, resp.Body, resp.ContentLength, sink)
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return nil, err
	}

	return &Result{
		Path:        dest,
		Size:        written,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

func (d *Direct) copyWithProgress(dst io.Writer, src io.Reader, total int64, sink progress.Sink) (int64, error) {
	report := progress.Throttle(sink, d.interval)
	buf := make([]byte, copyChunkSize)

	var written int64
	start := time.Now()

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("writing file: %w", werr)
			}
			written += int64(n)

			if d.maxFileSize > 0 && written > d.maxFileSize {
				return written, &SizeCeilingError{Limit: d.maxFileSize, Actual: written}
			}

			elapsed := time.Since(start).Seconds()
			var speed float64
			if elapsed > 0 {
				speed = float64(written) / elapsed
			}
			var eta time.Duration
			if speed > 0 && total > 0 {
				eta = time.Duration(float64(total-written)/speed) * time.Second
			}
			report(written, total, speed, eta)
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, fmt.Errorf("reading body: %w", err)
		}
	}
}
