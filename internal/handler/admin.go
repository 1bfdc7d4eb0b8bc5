package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/fetchbot/internal/config"
	"github.com/artur/fetchbot/internal/database/repository"
)

var adminCommands = map[string]bool{
	"setpremium": true,
	"delpremium": true,
	"setlimit":   true,
	"ban":        true,
	"unban":      true,
	"stats":      true,
}

// AdminHandler serves moderation and plan-management commands for the
// operator accounts listed in the config.
type AdminHandler struct {
	cfg       *config.Config
	userRepo  *repository.UserRepository
	downloads *repository.DownloadRepository
	statsRepo *repository.StatsRepository
}

func NewAdminHandler(cfg *config.Config, userRepo *repository.UserRepository, downloads *repository.DownloadRepository, statsRepo *repository.StatsRepository) *AdminHandler {
	return &AdminHandler{
		cfg:       cfg,
		userRepo:  userRepo,
		downloads: downloads,
		statsRepo: statsRepo,
	}
}

func (h *AdminHandler) CanHandle(update tgbotapi.Update) bool {
	return update.Message != nil && update.Message.IsCommand() &&
		adminCommands[update.Message.Command()]
}

func (h *AdminHandler) Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID
	if !h.cfg.IsAdmin(update.Message.From.ID) {
		sendText(bot, chatID, "This command is for bot operators only.")
		return
	}

	args := strings.Fields(update.Message.CommandArguments())
	switch update.Message.Command() {
	case "setpremium":
		h.togglePremium(bot, chatID, args, true)
	case "delpremium":
		h.togglePremium(bot, chatID, args, false)
	case "setlimit":
		h.setLimit(bot, chatID, args)
	case "ban":
		h.toggleBan(bot, chatID, args, true)
	case "unban":
		h.toggleBan(bot, chatID, args, false)
	case "stats":
		h.sendStats(bot, chatID)
	}
}

func (h *AdminHandler) togglePremium(bot API, chatID int64, args []string, premium bool) {
	uid, ok := parseUserID(bot, chatID, args, "setpremium <user_id>")
	if !ok {
		return
	}
	if err := h.userRepo.SetPremium(uid, premium); err != nil {
		slog.Error("failed to set premium", "user", uid, "error", err)
		sendText(bot, chatID, "Update failed.")
		return
	}
	if premium {
		sendText(bot, chatID, fmt.Sprintf("User %d is now premium.", uid))
	} else {
		sendText(bot, chatID, fmt.Sprintf("User %d is back on the free plan.", uid))
	}
}

func (h *AdminHandler) setLimit(bot API, chatID int64, args []string) {
	if len(args) != 3 {
		sendText(bot, chatID, "Usage: /setlimit <user_id> <daily_count> <daily_size_mb>")
		return
	}
	uid, err1 := strconv.ParseInt(args[0], 10, 64)
	count, err2 := strconv.Atoi(args[1])
	sizeMB, err3 := strconv.ParseInt(args[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || count < 0 || sizeMB < 0 {
		sendText(bot, chatID, "Usage: /setlimit <user_id> <daily_count> <daily_size_mb> (0 = unlimited)")
		return
	}
	if err := h.userRepo.SetLimits(uid, count, sizeMB*1024*1024); err != nil {
		slog.Error("failed to set limits", "user", uid, "error", err)
		sendText(bot, chatID, "Update failed.")
		return
	}
	sendText(bot, chatID, fmt.Sprintf("Limits for %d: %d downloads, %d MB per day.", uid, count, sizeMB))
}

func (h *AdminHandler) toggleBan(bot API, chatID int64, args []string, banned bool) {
	usage := "ban <user_id>"
	if !banned {
		usage = "unban <user_id>"
	}
	uid, ok := parseUserID(bot, chatID, args, usage)
	if !ok {
		return
	}
	if err := h.userRepo.SetBanned(uid, banned); err != nil {
		slog.Error("failed to set ban flag", "user", uid, "error", err)
		sendText(bot, chatID, "Update failed.")
		return
	}
	if banned {
		sendText(bot, chatID, fmt.Sprintf("User %d banned.", uid))
	} else {
		sendText(bot, chatID, fmt.Sprintf("User %d unbanned.", uid))
	}
}

func (h *AdminHandler) sendStats(bot API, chatID int64) {
	var b strings.Builder

	if users, err := h.userRepo.GetTotalUsers(); err == nil {
		fmt.Fprintf(&b, "Users: %d\n", users)
	}
	if count, bytes, err := h.downloads.GetTotals(); err == nil {
		fmt.Fprintf(&b, "Downloads: %d (%s)\n", count, humanize.IBytes(uint64(bytes)))
	}
	if commands, err := h.statsRepo.GetTotalCommands(); err == nil {
		fmt.Fprintf(&b, "Commands handled: %d\n", commands)
	}
	if popular, err := h.statsRepo.GetPopularCommands(5); err == nil && len(popular) > 0 {
		b.WriteString("Top commands:\n")
		for _, c := range popular {
			fmt.Fprintf(&b, "  /%s: %d\n", c.Command, c.Count)
		}
	}

	if b.Len() == 0 {
		sendText(bot, chatID, "No stats available.")
		return
	}
	sendText(bot, chatID, strings.TrimRight(b.String(), "\n"))
}

func parseUserID(bot API, chatID int64, args []string, usage string) (int64, bool) {
	if len(args) != 1 {
		sendText(bot, chatID, "Usage: /"+usage)
		return 0, false
	}
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		sendText(bot, chatID, "Usage: /"+usage)
		return 0, false
	}
	return uid, true
}
