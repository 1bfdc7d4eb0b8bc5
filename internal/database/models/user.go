package models

import "time"

// Upload modes for delivered files.
const (
	UploadModeVideo    = "video"
	UploadModeDocument = "document"
)

// User represents a Telegram user with quota counters and upload preferences
type User struct {
	ID             int64
	TelegramUserID int64
	Username       string
	FirstName      string
	LastName       string
	LanguageCode   string

	IsPremium bool
	IsBanned  bool

	// Daily quota. Limits of 0 mean unlimited. Counters reset lazily on
	// the first access of a new UTC day.
	DailyCountLimit int
	DailySizeLimit  int64
	UsedCountToday  int
	UsedSizeToday   int64
	LastResetDay    string
	LastUploadAt    time.Time

	SendScreenshots bool
	SendSample      bool
	SampleDuration  int
	Spoiler         bool
	UploadMode      string
	Caption         string
	Prefix          string
	Suffix          string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName builds the final file name with the user's prefix/suffix applied.
func (u *User) DisplayName(base string) string {
	return u.Prefix + base + u.Suffix
}
