package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/artur/fetchbot/internal/extractor"
	"github.com/artur/fetchbot/internal/progress"
)

// EngineFetch hands the URL to an extraction engine. Engines pick their own
// output extension, so the file is written under a short random base name
// and renamed to the requested target afterwards.
type EngineFetch struct {
	engines []extractor.Engine
	dir     string
}

// NewEngineFetch creates the engine-backed strategy writing into dir.
func NewEngineFetch(dir string, engines ...extractor.Engine) *EngineFetch {
	return &EngineFetch{engines: engines, dir: dir}
}

func (e *EngineFetch) Name() string { return "engine" }

// Applicable: engines are the only strategy that understands format IDs, and
// they also serve as the general fallback for page URLs.
func (e *EngineFetch) Applicable(req *Request) bool {
	return extractor.ForURL(req.URL, e.engines) != nil
}

func (e *EngineFetch) Attempt(ctx context.Context, req *Request, sink progress.Sink) (*Result, error) {
	engine := extractor.ForURL(req.URL, e.engines)
	if engine == nil {
		return nil, fmt.Errorf("no engine supports %s", req.URL)
	}

	if sink != nil {
		// Engines report no byte counts, show an indeterminate state once.
		sink(0, 0, 0, 0)
	}

	base := filepath.Join(e.dir, uuid.NewString()[:8])
	path, err := engine.Fetch(ctx, req.URL, req.FormatID, base)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("inspecting %s: %w", path, err)
	}

	dest := filepath.Join(e.dir, fmt.Sprintf("%d_%s", req.AccountID, withExt(req.TargetName, path)))
	if err := os.Rename(path, dest); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("renaming %s: %w", path, err)
	}

	return &Result{Path: dest, Size: info.Size()}, nil
}

// withExt ensures name carries the extension the engine actually produced.
func withExt(name, produced string) string {
	ext := filepath.Ext(produced)
	if ext == "" || filepath.Ext(name) == ext {
		return name
	}
	return name[:len(name)-len(filepath.Ext(name))] + ext
}
