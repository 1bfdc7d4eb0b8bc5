package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProbe_HeadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", "1048576")
		w.Header().Set("Content-Disposition", `attachment; filename="clip.mp4"`)
	}))
	defer srv.Close()

	p := NewWithClient(srv.Client())
	info := p.Probe(context.Background(), srv.URL+"/media")

	if info.Size != 1048576 {
		t.Errorf("expected size 1048576, got %d", info.Size)
	}
	if info.ContentType != "video/mp4" {
		t.Errorf("expected video/mp4, got %s", info.ContentType)
	}
	if info.Filename != "clip.mp4" {
		t.Errorf("expected clip.mp4, got %s", info.Filename)
	}
}

func TestProbe_FallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.Header().Set("Content-Type", "video/webm")
		w.Header().Set("Content-Length", "2048")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewWithClient(srv.Client())
	info := p.Probe(context.Background(), srv.URL+"/video.webm")

	if !sawGet {
		t.Fatal("expected fallback GET request")
	}
	if info.Size != 2048 {
		t.Errorf("expected size 2048, got %d", info.Size)
	}
	if info.Filename != "video.webm" {
		t.Errorf("expected filename from path, got %q", info.Filename)
	}
}

func TestProbe_FilenameFromContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
	}))
	defer srv.Close()

	p := NewWithClient(srv.Client())
	info := p.Probe(context.Background(), srv.URL+"/")

	if info.Filename != "file.mp4" {
		t.Errorf("expected file.mp4 from MIME guess, got %q", info.Filename)
	}
}

func TestProbe_NetworkFailureDegrades(t *testing.T) {
	p := New()
	info := p.Probe(context.Background(), "http://127.0.0.1:1/nothing")

	if info.Size != 0 || info.ContentType != "" || info.Filename != "" {
		t.Errorf("expected zero info on failure, got %+v", info)
	}
	if info.FinalURL != "http://127.0.0.1:1/nothing" {
		t.Errorf("expected original URL preserved, got %s", info.FinalURL)
	}
}
