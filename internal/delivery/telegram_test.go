package delivery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeAPI struct {
	sent      []tgbotapi.Chattable
	groups    []tgbotapi.MediaGroupConfig
	failVideo bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if _, isVideo := c.(tgbotapi.VideoConfig); isVideo && f.failVideo {
		return tgbotapi.Message{}, errors.New("Request Entity Too Large")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.groups = append(f.groups, cfg)
	return nil, nil
}

func tempFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDeliverSendsVideo(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api)

	err := tg.Deliver(10, Item{Path: tempFile(t), Name: "clip.mp4", Caption: "hi", AsVideo: true, DurationSec: 12})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	video, ok := api.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("sent %T, want VideoConfig", api.sent[0])
	}
	if video.Caption != "hi" || !video.SupportsStreaming || video.Duration != 12 {
		t.Errorf("video config = %+v", video)
	}
}

func TestDeliverFallsBackToDocument(t *testing.T) {
	api := &fakeAPI{failVideo: true}
	tg := NewTelegram(api)

	err := tg.Deliver(10, Item{Path: tempFile(t), Name: "clip.mp4", AsVideo: true})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	if _, ok := api.sent[0].(tgbotapi.DocumentConfig); !ok {
		t.Fatalf("sent %T, want DocumentConfig", api.sent[0])
	}
}

func TestDeliverDocumentMode(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api)

	if err := tg.Deliver(10, Item{Path: tempFile(t), Name: "clip.mp4", AsVideo: false}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, ok := api.sent[0].(tgbotapi.DocumentConfig); !ok {
		t.Fatalf("sent %T, want DocumentConfig", api.sent[0])
	}
}

func TestDeliverClosesFileAfterSend(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api)

	if err := tg.Deliver(10, Item{Path: tempFile(t), Name: "clip.mp4", AsVideo: true}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	video, ok := api.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("sent %T, want VideoConfig", api.sent[0])
	}
	reader, ok := video.File.(tgbotapi.FileReader)
	if !ok {
		t.Fatalf("payload is %T, want FileReader", video.File)
	}
	if _, err := reader.Reader.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("read after delivery = %v, want closed file", err)
	}
}

func TestSendAlbumCapsAtTen(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api)

	paths := make([]string, 12)
	for i := range paths {
		paths[i] = tempFile(t)
	}
	if err := tg.SendAlbum(10, paths); err != nil {
		t.Fatalf("SendAlbum: %v", err)
	}
	if len(api.groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(api.groups))
	}
	if got := len(api.groups[0].Media); got != 10 {
		t.Errorf("album size = %d, want 10", got)
	}
}

func TestSendAlbumEmptyIsNoop(t *testing.T) {
	api := &fakeAPI{}
	tg := NewTelegram(api)

	if err := tg.SendAlbum(10, nil); err != nil {
		t.Fatalf("SendAlbum: %v", err)
	}
	if len(api.groups) != 0 {
		t.Error("empty album should send nothing")
	}
}
