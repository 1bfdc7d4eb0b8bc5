// Package bot runs the long-polling update loop and dispatches updates to
// registered handlers.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Handler processes one category of updates. The first handler whose
// CanHandle returns true receives the update.
type Handler interface {
	CanHandle(update tgbotapi.Update) bool
	Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	handlers []Handler
}

func New(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	slog.Info("authorized", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		handlers: make([]Handler, 0),
	}, nil
}

// API exposes the underlying client for components that send messages
// outside the update loop.
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

func (b *Bot) RegisterHandler(h Handler) {
	b.handlers = append(b.handlers, h)
	slog.Debug("registered handler", "handler", fmt.Sprintf("%T", h))
}

// Run polls for updates until ctx is cancelled. Each handled update runs in
// its own goroutine so a long download never blocks the loop.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("starting update loop", "handlers", len(b.handlers))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("update loop stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil && update.CallbackQuery == nil {
		return
	}

	if update.Message != nil {
		slog.Debug("message received",
			"from", update.Message.From.UserName,
			"chat", update.Message.Chat.ID)
	}
	if update.CallbackQuery != nil {
		slog.Debug("callback received",
			"from", update.CallbackQuery.From.UserName,
			"data", update.CallbackQuery.Data)
	}

	for _, handler := range b.handlers {
		if handler.CanHandle(update) {
			go handler.Handle(ctx, b.api, update)
			return
		}
	}

	slog.Debug("no handler for update", "update_id", update.UpdateID)
}
