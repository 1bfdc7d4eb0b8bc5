package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/artur/fetchbot/internal/bot"
	"github.com/artur/fetchbot/internal/config"
	"github.com/artur/fetchbot/internal/database"
	"github.com/artur/fetchbot/internal/database/repository"
	"github.com/artur/fetchbot/internal/delivery"
	"github.com/artur/fetchbot/internal/extractor"
	"github.com/artur/fetchbot/internal/fetch"
	"github.com/artur/fetchbot/internal/handler"
	"github.com/artur/fetchbot/internal/media"
	"github.com/artur/fetchbot/internal/probe"
	"github.com/artur/fetchbot/internal/quota"
	"github.com/artur/fetchbot/internal/resolver"
	"github.com/artur/fetchbot/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	userRepo := repository.NewUserRepository(db.DB,
		repository.Limits{
			CountLimit: cfg.DefaultDailyCountLimit,
			SizeLimit:  cfg.DefaultDailySizeLimitMB * 1024 * 1024,
		},
		repository.Limits{
			CountLimit: cfg.PremiumDailyCountLimit,
			SizeLimit:  cfg.PremiumDailySizeLimitMB * 1024 * 1024,
		})
	statsRepo := repository.NewStatsRepository(db.DB)
	downloadRepo := repository.NewDownloadRepository(db.DB)

	ledger := quota.NewLedger(userRepo, cfg.Cooldown())

	ytdlp := extractor.NewYtdlp(cfg.YtdlpPath)
	engines := []extractor.Engine{extractor.NewYouTube(), ytdlp}

	direct := fetch.NewDirect(cfg.DownloadDir, cfg.MaxFileSize(), cfg.ProgressInterval)
	chain := fetch.NewChain(cfg.MaxFileSize(), cfg.MaxDownloads,
		direct,
		fetch.NewEngineFetch(cfg.DownloadDir, engines...),
		fetch.NewSniff(direct, ytdlp),
	)

	pipeline := media.NewPipeline(media.NewFFmpeg(cfg.FFmpegPath, cfg.FFprobePath), cfg.DownloadDir)

	b, err := bot.New(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("creating bot: %w", err)
	}

	registry := session.NewRegistry()
	sender := delivery.NewTelegram(b.API())

	b.RegisterHandler(handler.NewStartHandler(userRepo, statsRepo))
	b.RegisterHandler(handler.NewSettingsHandler(userRepo, statsRepo, ledger))
	b.RegisterHandler(handler.NewAdminHandler(cfg, userRepo, downloadRepo, statsRepo))
	b.RegisterHandler(handler.NewURLHandler(
		cfg, registry,
		probe.New(),
		resolver.New(cfg.MaxFileSize(), engines...),
		chain, pipeline, sender, ledger, userRepo, downloadRepo,
	))

	b.Run(ctx)
	return nil
}
