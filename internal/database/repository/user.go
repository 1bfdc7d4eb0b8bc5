package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artur/fetchbot/internal/database/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Limits holds the daily quota defaults applied to users.
type Limits struct {
	CountLimit int
	SizeLimit  int64
}

// UserRepository handles user data persistence
type UserRepository struct {
	db       *sql.DB
	defaults Limits
	premium  Limits
}

// NewUserRepository creates a new UserRepository. New users get the default
// limits; promoting to premium applies the premium limits.
func NewUserRepository(db *sql.DB, defaults, premium Limits) *UserRepository {
	return &UserRepository{db: db, defaults: defaults, premium: premium}
}

// UpsertFromTelegram creates or updates user from Telegram user object.
// Quota counters and preferences of an existing user are left untouched.
func (r *UserRepository) UpsertFromTelegram(tgUser *tgbotapi.User) (*models.User, error) {
	if tgUser == nil {
		return nil, fmt.Errorf("telegram user is nil")
	}

	now := time.Now()

	query := `
		INSERT INTO users (telegram_user_id, username, first_name, last_name, language_code,
			daily_count_limit, daily_size_limit, last_reset_day, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(telegram_user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			language_code = excluded.language_code,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		tgUser.ID,
		tgUser.UserName,
		tgUser.FirstName,
		tgUser.LastName,
		tgUser.LanguageCode,
		r.defaults.CountLimit,
		r.defaults.SizeLimit,
		now.UTC().Format(time.DateOnly),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return r.GetByTelegramID(tgUser.ID)
}

// GetByTelegramID retrieves user by Telegram user ID
func (r *UserRepository) GetByTelegramID(telegramUserID int64) (*models.User, error) {
	query := `
		SELECT id, telegram_user_id, username, first_name, last_name, language_code,
			is_premium, is_banned,
			daily_count_limit, daily_size_limit, used_count_today, used_size_today,
			last_reset_day, last_upload_at,
			send_screenshots, send_sample, sample_duration, spoiler, upload_mode,
			caption, prefix, suffix,
			created_at, updated_at
		FROM users
		WHERE telegram_user_id = ?
	`

	user := &models.User{}
	var username, firstName, lastName, languageCode sql.NullString
	var caption, prefix, suffix sql.NullString
	var lastUpload sql.NullTime

	err := r.db.QueryRow(query, telegramUserID).Scan(
		&user.ID,
		&user.TelegramUserID,
		&username,
		&firstName,
		&lastName,
		&languageCode,
		&user.IsPremium,
		&user.IsBanned,
		&user.DailyCountLimit,
		&user.DailySizeLimit,
		&user.UsedCountToday,
		&user.UsedSizeToday,
		&user.LastResetDay,
		&lastUpload,
		&user.SendScreenshots,
		&user.SendSample,
		&user.SampleDuration,
		&user.Spoiler,
		&user.UploadMode,
		&caption,
		&prefix,
		&suffix,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Username = username.String
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.LanguageCode = languageCode.String
	user.Caption = caption.String
	user.Prefix = prefix.String
	user.Suffix = suffix.String
	if lastUpload.Valid {
		user.LastUploadAt = lastUpload.Time
	}

	return user, nil
}

// ResetDaily zeroes the user's daily counters for the given day. Running it
// again for the same day is a no-op at the data level (counters already zero).
func (r *UserRepository) ResetDaily(telegramUserID int64, day string) error {
	query := `
		UPDATE users
		SET used_count_today = 0, used_size_today = 0, last_reset_day = ?, updated_at = ?
		WHERE telegram_user_id = ?
	`
	if _, err := r.db.Exec(query, day, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to reset daily usage: %w", err)
	}
	return nil
}

// AddUsage charges one delivered file of the given size against the user's
// daily counters and stamps the upload time.
func (r *UserRepository) AddUsage(telegramUserID int64, sizeBytes int64, uploadedAt time.Time) error {
	query := `
		UPDATE users
		SET used_count_today = used_count_today + 1,
			used_size_today = used_size_today + ?,
			last_upload_at = ?,
			updated_at = ?
		WHERE telegram_user_id = ?
	`
	if _, err := r.db.Exec(query, sizeBytes, uploadedAt, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to add usage: %w", err)
	}
	return nil
}

// SetPremium toggles the premium flag, applying the matching limit tier.
func (r *UserRepository) SetPremium(telegramUserID int64, premium bool) error {
	limits := r.defaults
	if premium {
		limits = r.premium
	}

	query := `
		UPDATE users
		SET is_premium = ?, daily_count_limit = ?, daily_size_limit = ?, updated_at = ?
		WHERE telegram_user_id = ?
	`
	if _, err := r.db.Exec(query, premium, limits.CountLimit, limits.SizeLimit, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to set premium: %w", err)
	}
	return nil
}

// SetLimits overrides the user's daily limits (0 = unlimited).
func (r *UserRepository) SetLimits(telegramUserID int64, countLimit int, sizeLimit int64) error {
	query := `UPDATE users SET daily_count_limit = ?, daily_size_limit = ?, updated_at = ? WHERE telegram_user_id = ?`
	if _, err := r.db.Exec(query, countLimit, sizeLimit, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to set limits: %w", err)
	}
	return nil
}

// SetBanned toggles the banned flag.
func (r *UserRepository) SetBanned(telegramUserID int64, banned bool) error {
	query := `UPDATE users SET is_banned = ?, updated_at = ? WHERE telegram_user_id = ?`
	if _, err := r.db.Exec(query, banned, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to set banned: %w", err)
	}
	return nil
}

// SetScreenshots toggles screenshot generation for delivered videos.
func (r *UserRepository) SetScreenshots(telegramUserID int64, enabled bool) error {
	return r.setPref(telegramUserID, `send_screenshots = ?`, enabled)
}

// SetSample toggles the sample clip; duration 0 means auto-scaled.
func (r *UserRepository) SetSample(telegramUserID int64, enabled bool, durationSec int) error {
	query := `UPDATE users SET send_sample = ?, sample_duration = ?, updated_at = ? WHERE telegram_user_id = ?`
	if _, err := r.db.Exec(query, enabled, durationSec, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to set sample: %w", err)
	}
	return nil
}

// SetSpoiler toggles the spoiler flag on delivered media.
func (r *UserRepository) SetSpoiler(telegramUserID int64, enabled bool) error {
	return r.setPref(telegramUserID, `spoiler = ?`, enabled)
}

// SetUploadMode switches between video and document delivery.
func (r *UserRepository) SetUploadMode(telegramUserID int64, mode string) error {
	return r.setPref(telegramUserID, `upload_mode = ?`, mode)
}

// SetCaption sets the caption template; empty clears it.
func (r *UserRepository) SetCaption(telegramUserID int64, caption string) error {
	return r.setPref(telegramUserID, `caption = ?`, caption)
}

// SetPrefix sets the filename prefix; empty clears it.
func (r *UserRepository) SetPrefix(telegramUserID int64, prefix string) error {
	return r.setPref(telegramUserID, `prefix = ?`, prefix)
}

// SetSuffix sets the filename suffix; empty clears it.
func (r *UserRepository) SetSuffix(telegramUserID int64, suffix string) error {
	return r.setPref(telegramUserID, `suffix = ?`, suffix)
}

func (r *UserRepository) setPref(telegramUserID int64, assignment string, value any) error {
	query := `UPDATE users SET ` + assignment + `, updated_at = ? WHERE telegram_user_id = ?`
	if _, err := r.db.Exec(query, value, time.Now(), telegramUserID); err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}
	return nil
}

// GetTotalUsers returns total number of unique users
func (r *UserRepository) GetTotalUsers() (int64, error) {
	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
