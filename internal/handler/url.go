package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/fetchbot/internal/config"
	"github.com/artur/fetchbot/internal/database/models"
	"github.com/artur/fetchbot/internal/database/repository"
	"github.com/artur/fetchbot/internal/delivery"
	"github.com/artur/fetchbot/internal/extractor"
	"github.com/artur/fetchbot/internal/fetch"
	"github.com/artur/fetchbot/internal/media"
	"github.com/artur/fetchbot/internal/probe"
	"github.com/artur/fetchbot/internal/progress"
	"github.com/artur/fetchbot/internal/quota"
	"github.com/artur/fetchbot/internal/resolver"
	"github.com/artur/fetchbot/internal/session"
)

// URLHandler drives the whole link conversation: probing, format choice,
// naming, download and upload.
type URLHandler struct {
	cfg       *config.Config
	registry  *session.Registry
	prober    *probe.Prober
	resolver  *resolver.Resolver
	chain     *fetch.Chain
	pipeline  *media.Pipeline
	sender    delivery.Sender
	ledger    *quota.Ledger
	userRepo  *repository.UserRepository
	downloads *repository.DownloadRepository
}

func NewURLHandler(
	cfg *config.Config,
	registry *session.Registry,
	prober *probe.Prober,
	res *resolver.Resolver,
	chain *fetch.Chain,
	pipeline *media.Pipeline,
	sender delivery.Sender,
	ledger *quota.Ledger,
	userRepo *repository.UserRepository,
	downloads *repository.DownloadRepository,
) *URLHandler {
	return &URLHandler{
		cfg:       cfg,
		registry:  registry,
		prober:    prober,
		resolver:  res,
		chain:     chain,
		pipeline:  pipeline,
		sender:    sender,
		ledger:    ledger,
		userRepo:  userRepo,
		downloads: downloads,
	}
}

func (h *URLHandler) CanHandle(update tgbotapi.Update) bool {
	if cb := update.CallbackQuery; cb != nil {
		return strings.HasPrefix(cb.Data, "name:") ||
			strings.HasPrefix(cb.Data, "fmt:") ||
			cb.Data == "direct"
	}
	msg := update.Message
	if msg == nil || msg.IsCommand() || msg.Text == "" {
		return false
	}
	if extractURL(msg.Text) != "" {
		return true
	}
	sess := h.registry.Get(msg.Chat.ID)
	return sess != nil && sess.State() == session.StateAwaitingNewName
}

func (h *URLHandler) Handle(ctx context.Context, bot *tgbotapi.BotAPI, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.handleCallback(ctx, bot, update.CallbackQuery)
		return
	}
	h.handleMessage(ctx, bot, update.Message)
}

func (h *URLHandler) handleMessage(ctx context.Context, bot API, msg *tgbotapi.Message) {
	user, err := h.userRepo.UpsertFromTelegram(msg.From)
	if err != nil {
		slog.Error("failed to upsert user", "error", err)
		return
	}
	chatID := msg.Chat.ID
	if user.IsBanned {
		sendText(bot, chatID, "Your account is blocked.")
		return
	}

	url, customName := splitURLAndName(msg.Text)

	if sess := h.registry.Get(chatID); sess != nil && sess.State() == session.StateAwaitingNewName && url == "" {
		h.handleRenameReply(ctx, bot, msg, user, sess)
		return
	}
	if url == "" {
		return
	}

	h.startConversation(ctx, bot, chatID, user, url, customName)
}

func (h *URLHandler) handleRenameReply(ctx context.Context, bot API, msg *tgbotapi.Message, user *models.User, sess *session.Session) {
	if sess.UserID != msg.From.ID {
		return
	}
	replyTo := 0
	if msg.ReplyToMessage != nil {
		replyTo = msg.ReplyToMessage.MessageID
	}
	if !sess.AcceptsRenameReply(replyTo) {
		sendText(bot, msg.Chat.ID, "To rename the file, reply to the rename prompt above.")
		return
	}

	sess.SetCustomName(inheritExt(session.SafeName(msg.Text), sess.Filename))

	if sess.Kind == session.KindExtracted {
		h.askQuality(bot, msg.Chat.ID, sess)
		return
	}
	h.run(ctx, bot, msg.Chat.ID, user, sess, "", false)
}

// startConversation probes a fresh link, enforces quota, and either asks for
// a name or jumps straight to the next step when one was given inline.
func (h *URLHandler) startConversation(ctx context.Context, bot API, chatID int64, user *models.User, url, customName string) {
	// A fresh link supersedes whatever conversation was in flight.
	h.registry.Remove(chatID)

	if err := h.ledger.Refresh(user); err != nil {
		slog.Error("failed to refresh quota", "error", err)
	}

	if wait := h.ledger.CooldownRemaining(user); wait > 0 {
		sendText(bot, chatID, fmt.Sprintf("Please wait %s before the next download.", progress.FormatETA(wait)))
		return
	}
	if h.ledger.CheckAndReserve(user, 0) == quota.DenyCount {
		sendText(bot, chatID, fmt.Sprintf("Daily limit of %d downloads reached. Come back tomorrow!", user.DailyCountLimit))
		return
	}

	waitMsg, err := bot.Send(tgbotapi.NewMessage(chatID, "🔎 Checking the link..."))
	if err != nil {
		slog.Error("failed to send wait message", "error", err)
		return
	}
	statusID := waitMsg.MessageID

	info := h.prober.Probe(ctx, url)

	if info.Size > 0 {
		if limit := h.cfg.MaxFileSize(); limit > 0 && info.Size > limit {
			editText(bot, chatID, statusID, fmt.Sprintf(
				"This file is %s, above the %s limit.",
				humanize.IBytes(uint64(info.Size)), humanize.IBytes(uint64(limit))))
			return
		}
		if h.ledger.CheckAndReserve(user, info.Size) == quota.DenySize {
			remaining, _ := h.ledger.RemainingSize(user)
			editText(bot, chatID, statusID, fmt.Sprintf(
				"This file is %s but only %s of today's traffic is left.",
				humanize.IBytes(uint64(info.Size)), humanize.IBytes(uint64(remaining))))
			return
		}
	}

	remaining, limited := h.ledger.RemainingSize(user)
	resolved := h.resolver.Resolve(ctx, info.FinalURL, remaining, limited)

	sess := session.New(user.TelegramUserID, chatID, info.FinalURL)
	sess.ProbedSize = info.Size
	sess.ContentType = info.ContentType

	if resolved != nil {
		sess.Kind = session.KindExtracted
		sess.Title = resolved.Title
		sess.Formats = resolved.Formats
		sess.ThumbnailURL = resolved.ThumbnailURL
		sess.DurationSec = resolved.DurationSec
		sess.Filename = extractedFilename(resolved.Title)
	} else {
		sess.Kind = session.KindDirect
		sess.Filename = directFilename(info)
	}
	if customName != "" {
		sess.SetCustomName(inheritExt(session.SafeName(customName), sess.Filename))
	}
	h.registry.Put(sess)

	if customName != "" {
		// Name already chosen inline, skip the prompt.
		if sess.Kind == session.KindExtracted {
			h.askQualityEdit(bot, chatID, statusID, sess)
		} else {
			h.run(ctx, bot, chatID, user, sess, "", false)
		}
		return
	}

	h.askName(bot, chatID, statusID, sess)
}

func (h *URLHandler) askName(bot API, chatID int64, statusID int, sess *session.Session) {
	var b strings.Builder
	if sess.Title != "" {
		fmt.Fprintf(&b, "Found: %s\n", sess.Title)
	}
	fmt.Fprintf(&b, "File name: %s", sess.Filename)
	if sess.ProbedSize > 0 {
		fmt.Fprintf(&b, " (%s)", humanize.IBytes(uint64(sess.ProbedSize)))
	}
	b.WriteString("\n\nKeep this name?")

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Keep", "name:default"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Rename", "name:rename"),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, statusID, b.String(), markup)
	if _, err := bot.Send(edit); err != nil {
		slog.Error("failed to edit message", "error", err)
	}
}

func (h *URLHandler) handleCallback(ctx context.Context, bot API, cb *tgbotapi.CallbackQuery) {
	if _, err := bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		slog.Error("failed to answer callback", "error", err)
	}

	chatID := cb.Message.Chat.ID
	sess := h.registry.Get(chatID)
	if sess == nil || sess.UserID != cb.From.ID || sess.State() == session.StateTerminal {
		editText(bot, chatID, cb.Message.MessageID, "This session has expired. Send the link again.")
		return
	}

	user, err := h.userRepo.GetByTelegramID(cb.From.ID)
	if err != nil || user == nil {
		slog.Error("failed to load user for callback", "error", err)
		return
	}
	if user.IsBanned {
		sendText(bot, chatID, "Your account is blocked.")
		return
	}
	if err := h.ledger.Refresh(user); err != nil {
		slog.Error("failed to refresh quota", "error", err)
	}

	switch {
	case cb.Data == "name:default":
		if sess.Kind == session.KindExtracted {
			h.askQualityEdit(bot, chatID, cb.Message.MessageID, sess)
			return
		}
		h.run(ctx, bot, chatID, user, sess, "", false)

	case cb.Data == "name:rename":
		h.sendRenamePrompt(bot, chatID, sess)

	case strings.HasPrefix(cb.Data, "fmt:"):
		id := strings.TrimPrefix(cb.Data, "fmt:")
		f := sess.FormatByID(id)
		if f == nil {
			editText(bot, chatID, cb.Message.MessageID, "That option is no longer available. Send the link again.")
			h.registry.RemoveIf(chatID, sess)
			return
		}
		if f.Size > 0 && h.ledger.CheckAndReserve(user, f.Size) == quota.DenySize {
			remaining, _ := h.ledger.RemainingSize(user)
			editText(bot, chatID, cb.Message.MessageID, fmt.Sprintf(
				"That rendition is %s but only %s of today's traffic is left.",
				humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(remaining))))
			return
		}
		h.run(ctx, bot, chatID, user, sess, id, false)

	case cb.Data == "direct":
		h.run(ctx, bot, chatID, user, sess, "", true)
	}
}

func (h *URLHandler) sendRenamePrompt(bot API, chatID int64, sess *session.Session) {
	prompt := tgbotapi.NewMessage(chatID, "Reply to this message with the new file name.")
	prompt.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}
	sent, err := bot.Send(prompt)
	if err != nil {
		slog.Error("failed to send rename prompt", "error", err)
		return
	}
	sess.AwaitRename(sent.MessageID)
}

func (h *URLHandler) askQuality(bot API, chatID int64, sess *session.Session) {
	msg := tgbotapi.NewMessage(chatID, "Pick a quality:")
	msg.ReplyMarkup = qualityKeyboard(sess)
	if _, err := bot.Send(msg); err != nil {
		slog.Error("failed to send quality menu", "error", err)
		return
	}
	sess.AwaitQuality()
}

func (h *URLHandler) askQualityEdit(bot API, chatID int64, statusID int, sess *session.Session) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, statusID, "Pick a quality:", qualityKeyboard(sess))
	if _, err := bot.Send(edit); err != nil {
		slog.Error("failed to edit message", "error", err)
		return
	}
	sess.AwaitQuality()
}

func qualityKeyboard(sess *session.Session) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(sess.Formats)+1)
	for _, f := range sess.Formats {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(formatLabel(f), "fmt:"+f.ID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⚡ Try direct download", "direct")))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// run executes the download and upload for a fully decided session. The
// session is consumed: it leaves the registry whatever the outcome. Two
// updates racing for the same session resolve through Claim, only one
// proceeds.
func (h *URLHandler) run(ctx context.Context, bot API, chatID int64, user *models.User, sess *session.Session, formatID string, assumePlayable bool) {
	if !sess.Claim() {
		return
	}
	defer h.registry.RemoveIf(chatID, sess)

	statusMsg, err := bot.Send(tgbotapi.NewMessage(chatID, "⬇️ Downloading..."))
	if err != nil {
		slog.Error("failed to send status message", "error", err)
		return
	}
	statusID := statusMsg.MessageID

	sink := func(done, total int64, speed float64, eta time.Duration) {
		editText(bot, chatID, statusID, progress.FormatText("⬇️ Downloading", done, total, speed, eta))
	}

	remaining, limited := h.ledger.RemainingSize(user)
	req := &fetch.Request{
		URL:            sess.URL,
		TargetName:     inheritExt(sess.EffectiveName(), sess.Filename),
		FormatID:       formatID,
		AccountID:      user.TelegramUserID,
		ProbedSize:     sess.ProbedSize,
		ContentType:    sess.ContentType,
		AssumePlayable: assumePlayable,
		Remaining:      remaining,
		Limited:        limited,
	}

	res, err := h.chain.Acquire(ctx, req, sink)
	if err != nil {
		editText(bot, chatID, statusID, downloadErrorText(err))
		return
	}
	defer os.Remove(res.Path)

	name := strings.TrimPrefix(filepath.Base(res.Path), fmt.Sprintf("%d_", user.TelegramUserID))
	displayName := user.DisplayName(name)
	asVideo := user.UploadMode != models.UploadModeDocument && media.IsVideoName(res.Path)

	var artifacts media.Artifacts
	if asVideo {
		artifacts = h.pipeline.Enrich(ctx, res.Path, media.Options{
			Thumbnail:       true,
			Sample:          user.SendSample,
			SampleDuration:  user.SampleDuration,
			Screenshots:     user.SendScreenshots,
			ScreenshotCount: h.cfg.ScreenshotCount,
		})
		defer artifacts.Cleanup()

		if artifacts.ThumbPath == "" && sess.ThumbnailURL != "" {
			artifacts.ThumbPath = h.downloadThumbnail(ctx, sess.ThumbnailURL)
		}
		if artifacts.DurationSec == 0 {
			artifacts.DurationSec = sess.DurationSec
		}
	}

	editText(bot, chatID, statusID, "⬆️ Uploading "+humanize.IBytes(uint64(res.Size))+"...")

	item := delivery.Item{
		Path:        res.Path,
		Name:        displayName,
		Caption:     renderCaption(user.Caption, displayName),
		ThumbPath:   artifacts.ThumbPath,
		AsVideo:     asVideo,
		Spoiler:     user.Spoiler,
		DurationSec: artifacts.DurationSec,
	}
	if err := h.sender.Deliver(chatID, item); err != nil {
		slog.Error("failed to deliver file", "error", err)
		editText(bot, chatID, statusID, "Upload failed. The file may be too large for Telegram.")
		return
	}

	if artifacts.SamplePath != "" {
		if err := h.sender.SendSample(chatID, artifacts.SamplePath, "Sample: "+displayName); err != nil {
			slog.Warn("failed to send sample", "error", err)
		}
	}
	if len(artifacts.Shots) > 0 {
		if err := h.sender.SendAlbum(chatID, artifacts.Shots); err != nil {
			slog.Warn("failed to send screenshots", "error", err)
		}
	}

	if err := h.ledger.Commit(user, res.Size); err != nil {
		slog.Error("failed to commit quota usage", "error", err)
	}
	if err := h.downloads.Record(&models.DownloadRecord{
		UserID:     user.ID,
		SourceURL:  sess.URL,
		Filename:   displayName,
		FormatID:   formatID,
		SizeBytes:  res.Size,
		ExecutedAt: time.Now(),
	}); err != nil {
		slog.Error("failed to record download", "error", err)
	}

	editText(bot, chatID, statusID, "✅ Done: "+displayName)
}

// downloadThumbnail fetches a remote preview image. Best effort.
func (h *URLHandler) downloadThumbnail(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ""
	}

	out, err := os.CreateTemp(h.cfg.DownloadDir, "thumb_*.jpg")
	if err != nil {
		return ""
	}
	_, copyErr := io.Copy(out, io.LimitReader(resp.Body, 2*1024*1024))
	out.Close()
	if copyErr != nil {
		os.Remove(out.Name())
		return ""
	}
	return out.Name()
}

func downloadErrorText(err error) string {
	var quotaErr *fetch.QuotaExceededError
	var ceilingErr *fetch.SizeCeilingError
	switch {
	case errors.Is(err, fetch.ErrBusy):
		return "All download slots are busy right now. Try again in a minute."
	case errors.As(err, &quotaErr):
		return quotaErr.Error()
	case errors.As(err, &ceilingErr):
		return ceilingErr.Error()
	case errors.Is(err, fetch.ErrExhausted):
		return "I could not download anything from this link."
	default:
		return "Download failed. Try again later."
	}
}

func formatLabel(f extractor.Format) string {
	var label string
	switch {
	case f.Height > 0:
		label = fmt.Sprintf("%dp", f.Height)
	case f.Ext != "":
		label = f.Ext
	default:
		label = f.ID
	}
	if !f.HasAudio {
		label += " (no sound)"
	}
	if f.Size > 0 {
		label += fmt.Sprintf(" · ~%s", humanize.IBytes(uint64(f.Size)))
	}
	return label
}

func renderCaption(template, fileName string) string {
	if template == "" {
		return fileName
	}
	return strings.ReplaceAll(template, "{file_name}", fileName)
}

// extractedFilename derives a file name from a page title.
func extractedFilename(title string) string {
	name := session.SafeName(title)
	if name == "file" {
		name = "video"
	}
	return name + ".mp4"
}

// directFilename picks a name for a direct file link, preferring the server's
// suggestion over the URL path.
func directFilename(info probe.Info) string {
	if info.Filename != "" {
		return session.SafeName(info.Filename)
	}
	if u, err := neturl.Parse(info.FinalURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return session.SafeName(base)
		}
	}
	return "file.bin"
}

// inheritExt keeps the original extension when the chosen name lacks one.
func inheritExt(name, original string) string {
	if filepath.Ext(name) != "" {
		return name
	}
	if ext := filepath.Ext(original); ext != "" {
		return name + ext
	}
	return name
}

func editText(bot API, chatID int64, messageID int, text string) {
	if _, err := bot.Send(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		slog.Debug("failed to edit message", "error", err)
	}
}
