// Package extractor wraps the external media-extraction engines behind a
// single interface: given a URL, list downloadable renditions or fetch one.
package extractor

import "context"

// Format is one downloadable rendition of a media page.
type Format struct {
	ID       string
	Ext      string
	Height   int   // vertical resolution, 0 = unknown
	Size     int64 // approximate bytes, 0 = unknown
	HasVideo bool
	HasAudio bool
}

// Info is the extraction result for a media page.
type Info struct {
	Title        string
	DurationSec  float64
	ThumbnailURL string
	Formats      []Format
}

// Engine lists formats for a URL or downloads a chosen one.
type Engine interface {
	// Supports reports whether this engine should handle the URL.
	Supports(url string) bool

	// ListFormats enumerates the renditions of a media page. An error or an
	// empty format list means the URL is not a recognized media page.
	ListFormats(ctx context.Context, url string) (*Info, error)

	// Fetch downloads the chosen format (empty formatID = engine's best) to
	// a path derived from outputBase and returns the final file path.
	Fetch(ctx context.Context, url, formatID, outputBase string) (string, error)
}

// ForURL picks the first engine that supports the URL.
func ForURL(url string, engines []Engine) Engine {
	for _, e := range engines {
		if e.Supports(url) {
			return e
		}
	}
	return nil
}
