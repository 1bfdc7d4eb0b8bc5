package handler

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/fetchbot/internal/database/models"
	"github.com/artur/fetchbot/internal/database/repository"
)

const helpText = `Send me a link and I will download it for you.

• Direct file links are fetched as-is.
• Video pages (YouTube and many others) let you pick a quality first.
• Add a name after the link to skip the rename step:
  https://example.com/video | My Clip.mp4

Settings: /screens_on /screens_off /sample_on /sample_off /setsample
/spoiler_on /spoiler_off /setmode /setcaption /delcaption /setprefix
/setsuffix /myplan`

const aboutText = `I download videos and files from links you send me,
respecting a daily per-user allowance. Previews, samples and screenshots
are configurable per user.`

type StartHandler struct {
	userRepo  *repository.UserRepository
	statsRepo *repository.StatsRepository
}

func NewStartHandler(userRepo *repository.UserRepository, statsRepo *repository.StatsRepository) *StartHandler {
	return &StartHandler{
		userRepo:  userRepo,
		statsRepo: statsRepo,
	}
}

func (h *StartHandler) CanHandle(update tgbotapi.Update) bool {
	if update.CallbackQuery != nil {
		data := update.CallbackQuery.Data
		return data == "open_help" || data == "open_about"
	}
	if update.Message == nil || !update.Message.IsCommand() {
		return false
	}
	switch update.Message.Command() {
	case "start", "help", "about":
		return true
	}
	return false
}

func (h *StartHandler) Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(bot, update.CallbackQuery)
		return
	}

	user, err := h.userRepo.UpsertFromTelegram(update.Message.From)
	if err != nil {
		slog.Error("failed to upsert user", "error", err)
	} else if err := h.statsRepo.RecordCommand(&models.CommandStat{UserID: user.ID, Command: update.Message.Command()}); err != nil {
		slog.Error("failed to record command", "error", err)
	}

	chatID := update.Message.Chat.ID
	switch update.Message.Command() {
	case "start":
		h.sendGreeting(bot, chatID, update.Message.From)
	case "help":
		sendText(bot, chatID, helpText)
	case "about":
		sendText(bot, chatID, aboutText)
	}
}

func (h *StartHandler) sendGreeting(bot API, chatID int64, from *tgbotapi.User) {
	name := getUserName(from.FirstName, from.UserName)
	msg := tgbotapi.NewMessage(chatID, "Hi, "+name+"! Send me a link to get started. 👋")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Help", "open_help"),
			tgbotapi.NewInlineKeyboardButtonData("About", "open_about"),
		),
	)
	if _, err := bot.Send(msg); err != nil {
		slog.Error("failed to send greeting", "error", err)
	}
}

func (h *StartHandler) handleCallback(bot API, cb *tgbotapi.CallbackQuery) {
	if _, err := bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Error("failed to answer callback", "error", err)
	}

	text := helpText
	if cb.Data == "open_about" {
		text = aboutText
	}
	sendText(bot, cb.Message.Chat.ID, text)
}

func sendText(bot API, chatID int64, text string) {
	if _, err := bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("failed to send message", "error", err)
	}
}
