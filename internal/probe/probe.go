// Package probe inspects a URL without downloading its body: final location
// after share-link redirects, size, content type and a suggested filename.
package probe

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/artur/fetchbot/internal/logctx"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Hosts whose links are wrappers around the real media URL. Probing resolves
// them to the final redirect target first.
var shareLinkHosts = []string{
	"facebook.com/share/",
	"fb.watch",
	"t.co/",
	"bit.ly/",
	"tinyurl.com/",
}

// Info is the probe result. Zero values mean unknown.
type Info struct {
	Size        int64
	ContentType string
	Filename    string
	FinalURL    string
}

// Prober resolves share links and issues metadata-only requests.
type Prober struct {
	client *http.Client
}

// New creates a Prober with a bounded-redirect client.
func New() *Prober {
	return &Prober{
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithClient creates a Prober using the given client (used in tests).
func NewWithClient(client *http.Client) *Prober {
	return &Prober{client: client}
}

// Probe never fails: any network error degrades to an Info with unknowns.
func (p *Prober) Probe(ctx context.Context, rawURL string) Info {
	logger := logctx.LoggerFromContext(ctx)

	finalURL := p.normalize(ctx, rawURL)
	info := Info{FinalURL: finalURL}

	resp, err := p.headerRequest(ctx, finalURL)
	if err != nil {
		logger.Debug("probe failed", "url", rawURL, "err", err)
		return info
	}
	defer resp.Body.Close()

	info.ContentType = resp.Header.Get("Content-Type")

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size > 0 {
			info.Size = size
		}
	}

	info.Filename = suggestFilename(resp, info.ContentType)

	return info
}

// normalize resolves known share-link patterns to their final redirect
// target. On any failure the original URL is returned unchanged.
func (p *Prober) normalize(ctx context.Context, rawURL string) string {
	lower := strings.ToLower(rawURL)
	match := false
	for _, h := range shareLinkHosts {
		if strings.Contains(lower, h) {
			match = true
			break
		}
	}
	if !match {
		return rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()

	if final := resp.Request.URL.String(); final != "" {
		return final
	}
	return rawURL
}

// headerRequest issues a HEAD request, falling back to a streamed GET whose
// body is closed unread when the origin rejects HEAD.
func (p *Prober) headerRequest(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err == nil && resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}
	if err == nil {
		resp.Body.Close()
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	return p.client.Do(req)
}

func suggestFilename(resp *http.Response, contentType string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}

	if base := path.Base(resp.Request.URL.Path); base != "" && base != "/" && base != "." {
		if decoded, err := url.PathUnescape(base); err == nil {
			return decoded
		}
		return base
	}

	if contentType != "" {
		mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
		if ext, ok := contentTypeToExt[mediaType]; ok {
			return "file" + ext
		}
	}

	return ""
}

var contentTypeToExt = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"audio/mpeg":       ".mp3",
	"audio/mp4":        ".m4a",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/jpeg":       ".jpg",
	"application/pdf":  ".pdf",
	"application/zip":  ".zip",
}
