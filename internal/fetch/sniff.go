package fetch

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artur/fetchbot/internal/extractor"
	"github.com/artur/fetchbot/internal/logctx"
	"github.com/artur/fetchbot/internal/media"
	"github.com/artur/fetchbot/internal/progress"
)

const (
	sniffReadLimit = 2 * 1024 * 1024
	pageTimeout    = 20 * time.Second
)

// mediaURLRe matches embedded playable resources inside page markup or JSON,
// both HLS manifests and plain media files. JSON-escaped slashes are covered
// by the optional backslashes.
var mediaURLRe = regexp.MustCompile(`https?:(?:\\?/){2}(?:[^\s"'<>\\]|\\/)+?\.(?:m3u8|mp4|webm|mov|mkv|mp3|m4a)(?:\?(?:[^\s"'<>\\]|\\/)*)?`)

// Sniff fetches the page body and scans it for an embedded media URL. Plain
// media files are downloaded directly; HLS manifests are handed to the
// manifest engine, which knows how to assemble segments. It is the last
// resort for pages no extraction engine could handle.
type Sniff struct {
	client   *http.Client
	direct   *Direct
	manifest extractor.Engine // may be nil
}

// NewSniff creates the page-scanning strategy. manifest handles .m3u8 URLs
// and may be nil, in which case manifest-only pages fail.
func NewSniff(direct *Direct, manifest extractor.Engine) *Sniff {
	return &Sniff{
		client:   &http.Client{Timeout: pageTimeout},
		direct:   direct,
		manifest: manifest,
	}
}

func (s *Sniff) Name() string { return "sniff" }

// Applicable: only worth trying on URLs that do not already point at a file.
func (s *Sniff) Applicable(req *Request) bool {
	return req.FormatID == "" && !media.IsVideoName(req.URL) && !media.IsAudioName(req.URL)
}

func (s *Sniff) Attempt(ctx context.Context, req *Request, sink progress.Sink) (*Result, error) {
	mediaURL, err := s.findMediaURL(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	logctx.LoggerFromContext(ctx).Debug("embedded media found", "page", req.URL, "media", mediaURL)

	if isManifest(mediaURL) {
		return s.fetchManifest(ctx, req, mediaURL, sink)
	}

	name := req.TargetName
	if ext := urlExt(mediaURL); ext != "" && filepath.Ext(name) != ext {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ext
	}
	dest := filepath.Join(s.direct.dir, fmt.Sprintf("%d_%s", req.AccountID, name))
	return s.direct.fetchToFile(ctx, mediaURL, dest, sink)
}

func (s *Sniff) fetchManifest(ctx context.Context, req *Request, mediaURL string, sink progress.Sink) (*Result, error) {
	if s.manifest == nil {
		return nil, fmt.Errorf("found only a streaming manifest in %s", req.URL)
	}
	if sink != nil {
		sink(0, 0, 0, 0)
	}

	base := filepath.Join(s.direct.dir, uuid.NewString()[:8])
	path, err := s.manifest.Fetch(ctx, mediaURL, "", base)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}

	dest := filepath.Join(s.direct.dir, fmt.Sprintf("%d_%s", req.AccountID, withExt(req.TargetName, path)))
	if err := os.Rename(path, dest); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("renaming %s: %w", path, err)
	}
	return &Result{Path: dest, Size: info.Size()}, nil
}

// findMediaURL reads up to sniffReadLimit bytes of the page and returns the
// first embedded plain media URL, falling back to an HLS manifest when the
// page exposes nothing else.
func (s *Sniff) findMediaURL(ctx context.Context, pageURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("fetching page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching page %s: unexpected status %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, sniffReadLimit))
	if err != nil {
		return "", fmt.Errorf("reading page %s: %w", pageURL, err)
	}

	matches := mediaURLRe.FindAllString(string(body), -1)
	if len(matches) == 0 {
		return "", fmt.Errorf("no embedded media in %s", pageURL)
	}

	best := matches[0]
	for _, m := range matches {
		if !isManifest(m) {
			best = m
			break
		}
	}
	return cleanMediaURL(best), nil
}

func isManifest(mediaURL string) bool {
	return urlExt(mediaURL) == ".m3u8"
}

func urlExt(mediaURL string) string {
	return filepath.Ext(strings.SplitN(cleanMediaURL(mediaURL), "?", 2)[0])
}

func cleanMediaURL(raw string) string {
	return html.UnescapeString(strings.ReplaceAll(raw, `\/`, "/"))
}
