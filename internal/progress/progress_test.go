package progress

import (
	"strings"
	"testing"
	"time"
)

func TestThrottle_SuppressesBursts(t *testing.T) {
	var calls int
	sink := Throttle(func(done, total int64, speed float64, eta time.Duration) {
		calls++
	}, time.Hour)

	for i := 0; i < 10; i++ {
		sink(int64(i), 100, 0, 0)
	}

	if calls != 1 {
		t.Errorf("expected 1 call through throttle, got %d", calls)
	}
}

func TestThrottle_FinalUpdatePasses(t *testing.T) {
	var calls int
	sink := Throttle(func(done, total int64, speed float64, eta time.Duration) {
		calls++
	}, time.Hour)

	sink(10, 100, 0, 0)
	sink(50, 100, 0, 0)
	sink(100, 100, 0, 0) // completion must always fire

	if calls != 2 {
		t.Errorf("expected first + final call, got %d", calls)
	}
}

func TestThrottle_NilSink(t *testing.T) {
	sink := Throttle(nil, time.Second)
	// Must not panic
	sink(1, 2, 3, time.Second)
}

func TestFormatText(t *testing.T) {
	text := FormatText("Downloading...", 512*1024, 1024*1024, 256*1024, 2*time.Second)

	for _, want := range []string{"Downloading...", "50.0%", "512 KiB", "1.0 MiB", "256 KiB/s", "ETA: 2s"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in progress text:\n%s", want, text)
		}
	}
}

func TestFormatText_UnknownTotal(t *testing.T) {
	text := FormatText("Downloading...", 1024, 0, 0, 0)

	if !strings.Contains(text, "/ ?") {
		t.Errorf("expected unknown total marker, got:\n%s", text)
	}
	if !strings.Contains(text, "calculating") {
		t.Errorf("expected calculating ETA, got:\n%s", text)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{5 * time.Second, "5s"},
		{65 * time.Second, "1m 5s"},
		{3725 * time.Second, "1h 2m 5s"},
	}

	for _, tt := range tests {
		if got := FormatETA(tt.d); got != tt.expected {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.d, got, tt.expected)
		}
	}
}
