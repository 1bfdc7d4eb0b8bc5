// Package resolver turns a URL into the list of downloadable renditions the
// user may choose from, filtered by the per-file ceiling and remaining quota.
package resolver

import (
	"context"
	"sort"

	"github.com/artur/fetchbot/internal/extractor"
	"github.com/artur/fetchbot/internal/logctx"
)

// Extensions that mark still-image formats; never offered for download.
var imageExts = map[string]bool{
	"gif": true, "jpg": true, "jpeg": true, "png": true, "webp": true,
}

// Result is a recognized media page with its candidate formats.
type Result struct {
	Title        string
	DurationSec  float64
	ThumbnailURL string
	Formats      []extractor.Format
}

// Resolver enumerates candidate formats via the extraction engines.
type Resolver struct {
	engines     []extractor.Engine
	maxFileSize int64
}

// New creates a Resolver. maxFileSize of 0 disables the ceiling filter.
func New(maxFileSize int64, engines ...extractor.Engine) *Resolver {
	return &Resolver{engines: engines, maxFileSize: maxFileSize}
}

// Resolve returns the candidate formats for a URL, or nil when the URL is not
// a recognized media page. Engine failures are treated as unsupported, never
// as errors. remaining/limited describe the requester's size quota.
func (r *Resolver) Resolve(ctx context.Context, url string, remaining int64, limited bool) *Result {
	logger := logctx.LoggerFromContext(ctx)

	engine := extractor.ForURL(url, r.engines)
	if engine == nil {
		return nil
	}

	info, err := engine.ListFormats(ctx, url)
	if err != nil {
		logger.Debug("extraction engine rejected url", "url", url, "err", err)
		return nil
	}

	candidates := combinedFormats(info.Formats)
	if len(candidates) == 0 {
		return nil
	}

	// Size filtering is advisory: when it would leave the user with nothing,
	// show the full list and let the final admission check decide.
	filtered := r.filterBySize(candidates, remaining, limited)
	if len(filtered) == 0 {
		filtered = candidates
	}

	sortByHeight(filtered)

	return &Result{
		Title:        info.Title,
		DurationSec:  info.DurationSec,
		ThumbnailURL: info.ThumbnailURL,
		Formats:      filtered,
	}
}

// combinedFormats keeps audio+video renditions, falling back to muted video
// when a page offers nothing combined. Image formats are always dropped.
func combinedFormats(formats []extractor.Format) []extractor.Format {
	var combined []extractor.Format
	for _, f := range formats {
		if f.ID == "" || imageExts[f.Ext] {
			continue
		}
		if f.HasVideo && f.HasAudio {
			combined = append(combined, f)
		}
	}
	if len(combined) > 0 {
		return combined
	}

	var muted []extractor.Format
	for _, f := range formats {
		if f.ID == "" || imageExts[f.Ext] || !f.HasVideo {
			continue
		}
		muted = append(muted, f)
	}
	return muted
}

func (r *Resolver) filterBySize(formats []extractor.Format, remaining int64, limited bool) []extractor.Format {
	var kept []extractor.Format
	for _, f := range formats {
		if f.Size > 0 && r.maxFileSize > 0 && f.Size > r.maxFileSize {
			continue
		}
		if f.Size > 0 && limited && f.Size > remaining {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func sortByHeight(formats []extractor.Format) {
	sort.SliceStable(formats, func(i, j int) bool {
		// Unknown resolution sorts last
		if formats[i].Height == 0 {
			return false
		}
		if formats[j].Height == 0 {
			return true
		}
		return formats[i].Height > formats[j].Height
	})
}
