package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/artur/fetchbot/internal/extractor"
)

type fakeEngine struct {
	info *extractor.Info
	err  error
}

func (f *fakeEngine) Supports(url string) bool { return true }

func (f *fakeEngine) ListFormats(ctx context.Context, url string) (*extractor.Info, error) {
	return f.info, f.err
}

func (f *fakeEngine) Fetch(ctx context.Context, url, formatID, outputBase string) (string, error) {
	return "", errors.New("not implemented")
}

const mb = 1024 * 1024

func av(id string, height int, size int64) extractor.Format {
	return extractor.Format{ID: id, Ext: "mp4", Height: height, Size: size, HasVideo: true, HasAudio: true}
}

func TestResolve_SizeFilter(t *testing.T) {
	engine := &fakeEngine{info: &extractor.Info{
		Title: "clip",
		Formats: []extractor.Format{
			av("a", 720, 500*mb),
			av("b", 360, 50*mb),
			av("c", 1080, 2048*mb),
		},
	}}

	r := New(1024*mb, engine)
	res := r.Resolve(context.Background(), "https://example.com/v", 100*mb, true)

	if res == nil {
		t.Fatal("expected a result")
	}
	if len(res.Formats) != 1 {
		t.Fatalf("expected 1 format after filtering, got %d", len(res.Formats))
	}
	if res.Formats[0].ID != "b" {
		t.Errorf("expected format b (50MB), got %s", res.Formats[0].ID)
	}
}

func TestResolve_EmptyFilterReturnsUnfiltered(t *testing.T) {
	engine := &fakeEngine{info: &extractor.Info{
		Formats: []extractor.Format{
			av("a", 720, 500*mb),
			av("b", 360, 50*mb),
			av("c", 1080, 2048*mb),
		},
	}}

	r := New(1024*mb, engine)
	// Remaining quota of 1MB filters everything out
	res := r.Resolve(context.Background(), "https://example.com/v", 1*mb, true)

	if res == nil {
		t.Fatal("expected a result")
	}
	if len(res.Formats) != 3 {
		t.Errorf("expected the original 3 formats back, got %d", len(res.Formats))
	}
}

func TestResolve_SortsByHeightDesc(t *testing.T) {
	engine := &fakeEngine{info: &extractor.Info{
		Formats: []extractor.Format{
			av("low", 360, 0),
			av("unknown", 0, 0),
			av("high", 1080, 0),
			av("mid", 720, 0),
		},
	}}

	r := New(0, engine)
	res := r.Resolve(context.Background(), "https://example.com/v", 0, false)

	if res == nil {
		t.Fatal("expected a result")
	}

	order := []string{"high", "mid", "low", "unknown"}
	for i, want := range order {
		if res.Formats[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, res.Formats[i].ID)
		}
	}
}

func TestResolve_MutedFallback(t *testing.T) {
	engine := &fakeEngine{info: &extractor.Info{
		Formats: []extractor.Format{
			{ID: "video-only", Ext: "mp4", Height: 720, HasVideo: true, HasAudio: false},
			{ID: "audio-only", Ext: "m4a", HasVideo: false, HasAudio: true},
			{ID: "still", Ext: "jpg", HasVideo: true, HasAudio: false},
		},
	}}

	r := New(0, engine)
	res := r.Resolve(context.Background(), "https://example.com/v", 0, false)

	if res == nil {
		t.Fatal("expected muted fallback result")
	}
	if len(res.Formats) != 1 || res.Formats[0].ID != "video-only" {
		t.Errorf("expected only the muted video format, got %+v", res.Formats)
	}
}

func TestResolve_EngineErrorMeansUnsupported(t *testing.T) {
	r := New(0, &fakeEngine{err: errors.New("site not supported")})

	if res := r.Resolve(context.Background(), "https://example.com/page", 0, false); res != nil {
		t.Errorf("expected nil for failing engine, got %+v", res)
	}
}

func TestResolve_AudioOnlyPageUnsupported(t *testing.T) {
	engine := &fakeEngine{info: &extractor.Info{
		Formats: []extractor.Format{
			{ID: "audio-only", Ext: "m4a", HasVideo: false, HasAudio: true},
		},
	}}

	r := New(0, engine)
	if res := r.Resolve(context.Background(), "https://example.com/v", 0, false); res != nil {
		t.Errorf("expected nil when no video formats exist, got %+v", res)
	}
}
