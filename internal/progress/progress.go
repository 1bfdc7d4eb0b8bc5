// Package progress renders and throttles transfer progress updates.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Sink receives transfer progress: bytes done, total (0 = unknown),
// instantaneous speed in bytes/sec and the estimated remaining time.
type Sink func(done, total int64, speed float64, eta time.Duration)

// Throttle wraps a sink so it fires at most once per interval. The zero-done
// and completion updates always pass through.
func Throttle(sink Sink, interval time.Duration) Sink {
	if sink == nil {
		return func(int64, int64, float64, time.Duration) {}
	}

	var last time.Time
	return func(done, total int64, speed float64, eta time.Duration) {
		now := time.Now()
		final := total > 0 && done >= total
		if !final && !last.IsZero() && now.Sub(last) < interval {
			return
		}
		last = now
		sink(done, total, speed, eta)
	}
}

const barWidth = 20

// FormatText renders a progress message with a bar, sizes, speed and ETA.
func FormatText(prefix string, done, total int64, speed float64, eta time.Duration) string {
	var b strings.Builder

	b.WriteString(prefix)
	b.WriteString("\n")

	if total > 0 {
		percent := float64(done) * 100 / float64(total)
		filled := int(percent) * barWidth / 100
		if filled > barWidth {
			filled = barWidth
		}
		fmt.Fprintf(&b, "[%s%s] %.1f%%\n",
			strings.Repeat("█", filled),
			strings.Repeat("─", barWidth-filled),
			percent,
		)
		fmt.Fprintf(&b, "Done: %s / %s\n", humanize.IBytes(uint64(done)), humanize.IBytes(uint64(total)))
	} else {
		fmt.Fprintf(&b, "[%s]\n", strings.Repeat("─", barWidth))
		fmt.Fprintf(&b, "Done: %s / ?\n", humanize.IBytes(uint64(done)))
	}

	if speed > 0 {
		fmt.Fprintf(&b, "Speed: %s/s\n", humanize.IBytes(uint64(speed)))
	}

	if eta > 0 {
		fmt.Fprintf(&b, "ETA: %s", FormatETA(eta))
	} else {
		b.WriteString("ETA: calculating...")
	}

	return b.String()
}

// FormatETA renders a duration as "1h 2m 3s", dropping leading zero units.
func FormatETA(d time.Duration) string {
	seconds := int(d.Seconds())
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
