package fetch

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// ErrExhausted means every acquisition strategy failed for the request.
var ErrExhausted = errors.New("all acquisition strategies exhausted")

// ErrBusy means the global concurrent-download bound is reached.
var ErrBusy = errors.New("all download slots are busy")

// SizeCeilingError means the file exceeds the absolute per-file limit. Any
// partial or complete local file has already been deleted.
type SizeCeilingError struct {
	Limit  int64
	Actual int64 // bytes seen so far, may be below the final size
}

func (e *SizeCeilingError) Error() string {
	return fmt.Sprintf("file exceeds the %s per-file limit (got %s)",
		humanize.IBytes(uint64(e.Limit)), humanize.IBytes(uint64(e.Actual)))
}

// QuotaExceededError means the actual downloaded size does not fit the
// remaining daily allowance. The local file has already been deleted.
type QuotaExceededError struct {
	Remaining int64
	Actual    int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("file of %s exceeds the remaining daily allowance of %s",
		humanize.IBytes(uint64(e.Actual)), humanize.IBytes(uint64(e.Remaining)))
}
