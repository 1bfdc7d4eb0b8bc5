// Package fetch acquires a remote file through an ordered chain of download
// strategies, enforcing the per-file ceiling and the requester's remaining
// daily allowance against actual transferred bytes.
package fetch

import (
	"context"
	"errors"
	"os"

	"github.com/artur/fetchbot/internal/logctx"
	"github.com/artur/fetchbot/internal/progress"
)

// Request describes one acquisition.
type Request struct {
	URL        string
	TargetName string // final basename for the downloaded file
	FormatID   string // chosen rendition; empty when none was picked
	AccountID  int64  // namespaces temp files between concurrent sessions

	// Probe results, used by strategy applicability heuristics.
	ProbedSize  int64
	ContentType string

	// AssumePlayable forces the direct strategy even when the probe gave no
	// media hint (the user explicitly asked for a direct fetch).
	AssumePlayable bool

	// Daily allowance at acquisition time. Ignored when Limited is false.
	Remaining int64
	Limited   bool
}

// Result is the downloaded file. The caller owns the path and must delete it.
type Result struct {
	Path        string
	Size        int64
	ContentType string
}

// Strategy is one way of turning a Request into a local file.
type Strategy interface {
	Name() string

	// Applicable reports whether the strategy should be attempted at all.
	Applicable(req *Request) bool

	// Attempt downloads the file. Implementations must not leave partial
	// files behind on failure.
	Attempt(ctx context.Context, req *Request, sink progress.Sink) (*Result, error)
}

// Chain tries strategies in order until one produces an admissible file.
type Chain struct {
	strategies  []Strategy
	maxFileSize int64
	slots       chan struct{}
}

// NewChain creates a Chain with the given per-file ceiling (0 = none) and
// global concurrent-acquisition bound.
func NewChain(maxFileSize int64, maxConcurrent int, strategies ...Strategy) *Chain {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Chain{
		strategies:  strategies,
		maxFileSize: maxFileSize,
		slots:       make(chan struct{}, maxConcurrent),
	}
}

// Acquire runs the strategy chain. It returns ErrBusy without trying any
// strategy when the concurrency bound is reached, ErrExhausted when every
// applicable strategy failed, and a typed error when the produced file does
// not fit the ceiling or the remaining allowance. Re-invoking after a failure
// is safe: no partial state survives a failed attempt.
func (c *Chain) Acquire(ctx context.Context, req *Request, sink progress.Sink) (*Result, error) {
	select {
	case c.slots <- struct{}{}:
	default:
		return nil, ErrBusy
	}
	defer func() { <-c.slots }()

	logger := logctx.LoggerFromContext(ctx)

	for _, s := range c.strategies {
		if !s.Applicable(req) {
			continue
		}

		res, err := s.Attempt(ctx, req, sink)
		if err != nil {
			logger.Debug("strategy failed", "strategy", s.Name(), "url", req.URL, "err", err)

			var ceilingErr *SizeCeilingError
			if errors.As(err, &ceilingErr) {
				// A later strategy would fetch the same oversized file
				return nil, err
			}
			continue
		}

		if err := c.admit(req, res); err != nil {
			return nil, err
		}

		logger.Info("file acquired", "strategy", s.Name(), "path", res.Path, "size", res.Size)
		return res, nil
	}

	return nil, ErrExhausted
}

// admit re-validates the actual byte count, which may differ from any probed
// estimate. Inadmissible files are deleted before returning.
func (c *Chain) admit(req *Request, res *Result) error {
	if c.maxFileSize > 0 && res.Size > c.maxFileSize {
		os.Remove(res.Path)
		return &SizeCeilingError{Limit: c.maxFileSize, Actual: res.Size}
	}
	if req.Limited && res.Size > req.Remaining {
		os.Remove(res.Path)
		return &QuotaExceededError{Remaining: req.Remaining, Actual: res.Size}
	}
	return nil
}
