package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/fetchbot/internal/database/models"
	"github.com/artur/fetchbot/internal/database/repository"
	"github.com/artur/fetchbot/internal/quota"
)

var settingsCommands = map[string]bool{
	"screens_on":  true,
	"screens_off": true,
	"sample_on":   true,
	"sample_off":  true,
	"setsample":   true,
	"spoiler_on":  true,
	"spoiler_off": true,
	"setmode":     true,
	"setcaption":  true,
	"delcaption":  true,
	"setprefix":   true,
	"setsuffix":   true,
	"myplan":      true,
}

// SettingsHandler manages per-user upload preferences and the /myplan view.
type SettingsHandler struct {
	userRepo  *repository.UserRepository
	statsRepo *repository.StatsRepository
	ledger    *quota.Ledger
}

func NewSettingsHandler(userRepo *repository.UserRepository, statsRepo *repository.StatsRepository, ledger *quota.Ledger) *SettingsHandler {
	return &SettingsHandler{
		userRepo:  userRepo,
		statsRepo: statsRepo,
		ledger:    ledger,
	}
}

func (h *SettingsHandler) CanHandle(update tgbotapi.Update) bool {
	return update.Message != nil && update.Message.IsCommand() &&
		settingsCommands[update.Message.Command()]
}

func (h *SettingsHandler) Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	user, err := h.userRepo.UpsertFromTelegram(update.Message.From)
	if err != nil {
		slog.Error("failed to upsert user", "error", err)
		return
	}

	cmd := update.Message.Command()
	if err := h.statsRepo.RecordCommand(&models.CommandStat{UserID: user.ID, Command: cmd}); err != nil {
		slog.Error("failed to record command", "error", err)
	}

	chatID := update.Message.Chat.ID
	args := strings.TrimSpace(update.Message.CommandArguments())
	uid := user.TelegramUserID

	switch cmd {
	case "screens_on":
		h.apply(bot, chatID, "Screenshots enabled.", h.userRepo.SetScreenshots(uid, true))
	case "screens_off":
		h.apply(bot, chatID, "Screenshots disabled.", h.userRepo.SetScreenshots(uid, false))
	case "sample_on":
		h.apply(bot, chatID, "Sample clips enabled.", h.userRepo.SetSample(uid, true, user.SampleDuration))
	case "sample_off":
		h.apply(bot, chatID, "Sample clips disabled.", h.userRepo.SetSample(uid, false, user.SampleDuration))
	case "setsample":
		h.setSample(bot, chatID, user, args)
	case "spoiler_on":
		h.apply(bot, chatID, "Spoiler cover enabled.", h.userRepo.SetSpoiler(uid, true))
	case "spoiler_off":
		h.apply(bot, chatID, "Spoiler cover disabled.", h.userRepo.SetSpoiler(uid, false))
	case "setmode":
		h.setMode(bot, chatID, uid, args)
	case "setcaption":
		h.setCaption(bot, chatID, uid, args)
	case "delcaption":
		h.apply(bot, chatID, "Caption removed.", h.userRepo.SetCaption(uid, ""))
	case "setprefix":
		h.apply(bot, chatID, "Prefix saved.", h.userRepo.SetPrefix(uid, args))
	case "setsuffix":
		h.apply(bot, chatID, "Suffix saved.", h.userRepo.SetSuffix(uid, args))
	case "myplan":
		h.sendPlan(bot, chatID, user)
	}
}

func (h *SettingsHandler) apply(bot API, chatID int64, ok string, err error) {
	if err != nil {
		slog.Error("failed to save preference", "error", err)
		sendText(bot, chatID, "Could not save that setting, try again later.")
		return
	}
	sendText(bot, chatID, ok)
}

func (h *SettingsHandler) setSample(bot API, chatID int64, user *models.User, args string) {
	seconds, err := strconv.Atoi(args)
	if err != nil || seconds < 1 || seconds > 120 {
		sendText(bot, chatID, "Usage: /setsample <seconds> (1-120)")
		return
	}
	h.apply(bot, chatID,
		fmt.Sprintf("Sample length set to %d seconds.", seconds),
		h.userRepo.SetSample(user.TelegramUserID, true, seconds))
}

func (h *SettingsHandler) setMode(bot API, chatID, uid int64, args string) {
	mode := strings.ToLower(args)
	if mode != models.UploadModeVideo && mode != models.UploadModeDocument {
		sendText(bot, chatID, "Usage: /setmode video | /setmode document")
		return
	}
	h.apply(bot, chatID, "Upload mode set to "+mode+".", h.userRepo.SetUploadMode(uid, mode))
}

func (h *SettingsHandler) setCaption(bot API, chatID, uid int64, args string) {
	if args == "" {
		sendText(bot, chatID, "Usage: /setcaption <text>. Use {file_name} to insert the file name.")
		return
	}
	h.apply(bot, chatID, "Caption saved.", h.userRepo.SetCaption(uid, args))
}

func (h *SettingsHandler) sendPlan(bot API, chatID int64, user *models.User) {
	if err := h.ledger.Refresh(user); err != nil {
		slog.Error("failed to refresh quota", "error", err)
	}

	tier := "Free"
	if user.IsPremium {
		tier = "Premium"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %s\n", tier)
	if user.DailyCountLimit > 0 {
		fmt.Fprintf(&b, "Downloads today: %d / %d\n", user.UsedCountToday, user.DailyCountLimit)
	} else {
		fmt.Fprintf(&b, "Downloads today: %d (unlimited)\n", user.UsedCountToday)
	}
	if remaining, limited := h.ledger.RemainingSize(user); limited {
		fmt.Fprintf(&b, "Traffic today: %s used, %s left\n",
			humanize.IBytes(uint64(user.UsedSizeToday)), humanize.IBytes(uint64(remaining)))
	} else {
		fmt.Fprintf(&b, "Traffic today: %s used (unlimited)\n", humanize.IBytes(uint64(user.UsedSizeToday)))
	}
	fmt.Fprintf(&b, "Screenshots: %s\n", onOff(user.SendScreenshots))
	fmt.Fprintf(&b, "Sample: %s", onOff(user.SendSample))
	if user.SendSample && user.SampleDuration > 0 {
		fmt.Fprintf(&b, " (%ds)", user.SampleDuration)
	}
	fmt.Fprintf(&b, "\nUpload mode: %s", user.UploadMode)

	sendText(bot, chatID, b.String())
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
