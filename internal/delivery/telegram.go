// Package delivery uploads finished files to the chat, with video-first
// sending and a document fallback.
package delivery

import (
	"fmt"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Item is one finished file ready for upload.
type Item struct {
	Path        string
	Name        string
	Caption     string
	ThumbPath   string
	AsVideo     bool
	Spoiler     bool
	DurationSec float64
}

// Sender uploads files and auxiliary media to a chat.
type Sender interface {
	Deliver(chatID int64, item Item) error
	SendSample(chatID int64, path, caption string) error
	SendAlbum(chatID int64, paths []string) error
}

// API is the subset of the bot client the sender uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Telegram sends files through the Bot API.
type Telegram struct {
	api API
}

// NewTelegram creates a sender on top of the bot client.
func NewTelegram(api API) *Telegram {
	return &Telegram{api: api}
}

// Deliver uploads the file, as a streamable video when requested and the
// upload survives, otherwise as a document. Note the Bot API caps uploads at
// 50 MB for regular bots; oversized files surface as a send error.
func (t *Telegram) Deliver(chatID int64, item Item) error {
	if item.AsVideo {
		if err := t.sendVideo(chatID, item); err == nil {
			return nil
		} else {
			slog.Warn("video upload failed, retrying as document", "file", item.Name, "error", err)
		}
	}
	return t.sendDocument(chatID, item)
}

func (t *Telegram) sendVideo(chatID int64, item Item) error {
	payload, closer := openPayload(item.Path, item.Name)
	defer closer()
	video := tgbotapi.NewVideo(chatID, payload)
	video.Caption = item.Caption
	video.SupportsStreaming = true
	if item.DurationSec > 0 {
		video.Duration = int(item.DurationSec)
	}
	if item.ThumbPath != "" {
		video.Thumb = tgbotapi.FilePath(item.ThumbPath)
	}
	_, err := t.api.Send(video)
	if err != nil {
		return fmt.Errorf("sending video %s: %w", item.Name, err)
	}
	return nil
}

func (t *Telegram) sendDocument(chatID int64, item Item) error {
	payload, closer := openPayload(item.Path, item.Name)
	defer closer()
	doc := tgbotapi.NewDocument(chatID, payload)
	doc.Caption = item.Caption
	if item.ThumbPath != "" {
		doc.Thumb = tgbotapi.FilePath(item.ThumbPath)
	}
	_, err := t.api.Send(doc)
	if err != nil {
		return fmt.Errorf("sending document %s: %w", item.Name, err)
	}
	return nil
}

// SendSample uploads a short preview clip.
func (t *Telegram) SendSample(chatID int64, path, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.SupportsStreaming = true
	_, err := t.api.Send(video)
	if err != nil {
		return fmt.Errorf("sending sample: %w", err)
	}
	return nil
}

// SendAlbum uploads screenshots as one media group. Telegram allows at most
// ten entries per group; extras are dropped.
func (t *Telegram) SendAlbum(chatID int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	if len(paths) > 10 {
		paths = paths[:10]
	}

	media := make([]interface{}, 0, len(paths))
	for _, p := range paths {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(p)))
	}

	group := tgbotapi.NewMediaGroup(chatID, media)
	if _, err := t.api.SendMediaGroup(group); err != nil {
		return fmt.Errorf("sending album: %w", err)
	}
	return nil
}

// openPayload streams the file under its display name instead of the
// temp-path basename. The bot client never closes readers it is handed, so
// the caller must invoke the returned closer once the send finished.
func openPayload(path, name string) (tgbotapi.RequestFileData, func()) {
	f, err := os.Open(path)
	if err != nil {
		return tgbotapi.FilePath(path), func() {}
	}
	return tgbotapi.FileReader{Name: name, Reader: f}, func() { f.Close() }
}
