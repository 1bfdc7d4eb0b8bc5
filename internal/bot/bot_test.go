package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recordingHandler struct {
	accepts bool
	handled chan tgbotapi.Update
}

func newRecordingHandler(accepts bool) *recordingHandler {
	return &recordingHandler{accepts: accepts, handled: make(chan tgbotapi.Update, 1)}
}

func (h *recordingHandler) CanHandle(update tgbotapi.Update) bool { return h.accepts }

func (h *recordingHandler) Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	h.handled <- update
}

func messageUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			Text: text,
			From: &tgbotapi.User{ID: 1, UserName: "tester"},
			Chat: &tgbotapi.Chat{ID: 1},
		},
	}
}

func TestDispatchPicksFirstMatchingHandler(t *testing.T) {
	rejecting := newRecordingHandler(false)
	first := newRecordingHandler(true)
	second := newRecordingHandler(true)

	b := &Bot{handlers: []Handler{rejecting, first, second}}
	b.dispatch(context.Background(), messageUpdate("hello"))

	select {
	case <-first.handled:
	case <-time.After(time.Second):
		t.Fatal("matching handler was not invoked")
	}

	select {
	case <-second.handled:
		t.Fatal("later handler should not run once one matched")
	case <-rejecting.handled:
		t.Fatal("rejecting handler should not run")
	default:
	}
}

func TestDispatchIgnoresEmptyUpdates(t *testing.T) {
	h := newRecordingHandler(true)
	b := &Bot{handlers: []Handler{h}}

	b.dispatch(context.Background(), tgbotapi.Update{UpdateID: 2})

	select {
	case <-h.handled:
		t.Fatal("handler invoked for update without message or callback")
	case <-time.After(50 * time.Millisecond):
	}
}
