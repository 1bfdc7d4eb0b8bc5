package repository

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/artur/fetchbot/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func testUserRepo(t *testing.T) *UserRepository {
	t.Helper()
	db := setupTestDB(t)
	return NewUserRepository(db.DB,
		Limits{CountLimit: 10, SizeLimit: 100},
		Limits{CountLimit: 100, SizeLimit: 1000})
}

func tgUser(id int64) *tgbotapi.User {
	return &tgbotapi.User{ID: id, UserName: "tester", FirstName: "Test", LanguageCode: "en"}
}

func TestUpsertCreatesUserWithDefaultLimits(t *testing.T) {
	repo := testUserRepo(t)

	user, err := repo.UpsertFromTelegram(tgUser(100))
	if err != nil {
		t.Fatalf("UpsertFromTelegram: %v", err)
	}
	if user.TelegramUserID != 100 || user.Username != "tester" {
		t.Errorf("user = %+v", user)
	}
	if user.DailyCountLimit != 10 || user.DailySizeLimit != 100 {
		t.Errorf("limits = %d/%d, want 10/100", user.DailyCountLimit, user.DailySizeLimit)
	}
	if user.LastResetDay == "" {
		t.Error("new user should carry a reset day")
	}
	if user.UploadMode != "video" {
		t.Errorf("UploadMode = %q, want video", user.UploadMode)
	}
}

func TestUpsertPreservesCountersAndPreferences(t *testing.T) {
	repo := testUserRepo(t)

	user, err := repo.UpsertFromTelegram(tgUser(100))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AddUsage(100, 42, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetScreenshots(100, true); err != nil {
		t.Fatal(err)
	}

	updated := tgUser(100)
	updated.UserName = "renamed"
	user, err = repo.UpsertFromTelegram(updated)
	if err != nil {
		t.Fatal(err)
	}

	if user.Username != "renamed" {
		t.Errorf("Username = %q, identity should follow Telegram", user.Username)
	}
	if user.UsedCountToday != 1 || user.UsedSizeToday != 42 {
		t.Errorf("counters = %d/%d, upsert must not reset usage", user.UsedCountToday, user.UsedSizeToday)
	}
	if !user.SendScreenshots {
		t.Error("preferences must survive an upsert")
	}
}

func TestGetByTelegramIDMissing(t *testing.T) {
	repo := testUserRepo(t)

	user, err := repo.GetByTelegramID(999)
	if err != nil {
		t.Fatalf("GetByTelegramID: %v", err)
	}
	if user != nil {
		t.Errorf("user = %+v, want nil for unknown ID", user)
	}
}

func TestResetDailyZeroesCounters(t *testing.T) {
	repo := testUserRepo(t)
	if _, err := repo.UpsertFromTelegram(tgUser(100)); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddUsage(100, 50, time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := repo.ResetDaily(100, "2026-01-02"); err != nil {
		t.Fatalf("ResetDaily: %v", err)
	}

	user, err := repo.GetByTelegramID(100)
	if err != nil {
		t.Fatal(err)
	}
	if user.UsedCountToday != 0 || user.UsedSizeToday != 0 {
		t.Errorf("counters = %d/%d after reset", user.UsedCountToday, user.UsedSizeToday)
	}
	if user.LastResetDay != "2026-01-02" {
		t.Errorf("LastResetDay = %q", user.LastResetDay)
	}
}

func TestSetPremiumAppliesTierLimits(t *testing.T) {
	repo := testUserRepo(t)
	if _, err := repo.UpsertFromTelegram(tgUser(100)); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetPremium(100, true); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	user, _ := repo.GetByTelegramID(100)
	if !user.IsPremium || user.DailyCountLimit != 100 || user.DailySizeLimit != 1000 {
		t.Errorf("premium user = %+v", user)
	}

	if err := repo.SetPremium(100, false); err != nil {
		t.Fatal(err)
	}
	user, _ = repo.GetByTelegramID(100)
	if user.IsPremium || user.DailyCountLimit != 10 {
		t.Errorf("demoted user = %+v", user)
	}
}

func TestPreferenceSetters(t *testing.T) {
	repo := testUserRepo(t)
	if _, err := repo.UpsertFromTelegram(tgUser(100)); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetSample(100, true, 20); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetUploadMode(100, "document"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetCaption(100, "watch {file_name}"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPrefix(100, "[HD] "); err != nil {
		t.Fatal(err)
	}

	user, err := repo.GetByTelegramID(100)
	if err != nil {
		t.Fatal(err)
	}
	if !user.SendSample || user.SampleDuration != 20 {
		t.Errorf("sample prefs = %v/%d", user.SendSample, user.SampleDuration)
	}
	if user.UploadMode != "document" {
		t.Errorf("UploadMode = %q", user.UploadMode)
	}
	if user.Caption != "watch {file_name}" || user.Prefix != "[HD] " {
		t.Errorf("caption/prefix = %q/%q", user.Caption, user.Prefix)
	}
	if got := user.DisplayName("clip.mp4"); got != "[HD] clip.mp4" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestSetBanned(t *testing.T) {
	repo := testUserRepo(t)
	if _, err := repo.UpsertFromTelegram(tgUser(100)); err != nil {
		t.Fatal(err)
	}

	if err := repo.SetBanned(100, true); err != nil {
		t.Fatal(err)
	}
	user, _ := repo.GetByTelegramID(100)
	if !user.IsBanned {
		t.Error("user should be banned")
	}
}

func TestGetTotalUsers(t *testing.T) {
	repo := testUserRepo(t)
	for id := int64(1); id <= 3; id++ {
		if _, err := repo.UpsertFromTelegram(tgUser(id)); err != nil {
			t.Fatal(err)
		}
	}
	// Re-upserting must not inflate the count.
	if _, err := repo.UpsertFromTelegram(tgUser(1)); err != nil {
		t.Fatal(err)
	}

	total, err := repo.GetTotalUsers()
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("GetTotalUsers() = %d, want 3", total)
	}
}
