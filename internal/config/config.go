package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables.
type Config struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	DBPath      string `envconfig:"DB_PATH" default:"/data/bot.db"`
	DownloadDir string `envconfig:"DOWNLOAD_DIR" default:"/tmp/fetchbot"`

	// 0 means unlimited for all limit values.
	MaxFileSizeMB           int64 `envconfig:"MAX_FILE_SIZE_MB" default:"2000"`
	DefaultDailyCountLimit  int   `envconfig:"DEFAULT_DAILY_COUNT_LIMIT" default:"10"`
	DefaultDailySizeLimitMB int64 `envconfig:"DEFAULT_DAILY_SIZE_LIMIT_MB" default:"2000"`
	PremiumDailyCountLimit  int   `envconfig:"PREMIUM_DAILY_COUNT_LIMIT" default:"100"`
	PremiumDailySizeLimitMB int64 `envconfig:"PREMIUM_DAILY_SIZE_LIMIT_MB" default:"10000"`

	CooldownSeconds  int           `envconfig:"COOLDOWN_SECONDS" default:"120"`
	ProgressInterval time.Duration `envconfig:"PROGRESS_INTERVAL" default:"3s"`
	MaxDownloads     int           `envconfig:"MAX_DOWNLOADS" default:"3"`

	ScreenshotCount int `envconfig:"SCREENSHOT_COUNT" default:"6"`

	YtdlpPath   string `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	FFmpegPath  string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath string `envconfig:"FFPROBE_PATH" default:"ffprobe"`

	AdminIDs []int64 `envconfig:"ADMIN_IDS"`
	LogLevel string  `envconfig:"LOG_LEVEL" default:"INFO"`
}

// Load reads environment variables and populates the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	// Progress edits faster than once a second trip Telegram flood limits.
	if cfg.ProgressInterval < time.Second {
		cfg.ProgressInterval = time.Second
	}

	return &cfg, nil
}

// MaxFileSize returns the absolute per-file ceiling in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// Cooldown returns the non-premium cooldown as a duration. Zero disables it.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// IsAdmin reports whether the given Telegram user ID is a configured admin.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
