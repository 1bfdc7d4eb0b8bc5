package repository

import (
	"testing"
	"time"

	"github.com/artur/fetchbot/internal/database"
	"github.com/artur/fetchbot/internal/database/models"
)

func testDownloadSetup(t *testing.T) (*database.DB, *DownloadRepository, int64) {
	t.Helper()
	db := setupTestDB(t)
	users := NewUserRepository(db.DB, Limits{CountLimit: 10, SizeLimit: 100}, Limits{})
	user, err := users.UpsertFromTelegram(tgUser(100))
	if err != nil {
		t.Fatal(err)
	}
	return db, NewDownloadRepository(db.DB), user.ID
}

func TestRecordAndCount(t *testing.T) {
	_, repo, userID := testDownloadSetup(t)

	for i, size := range []int64{100, 250} {
		err := repo.Record(&models.DownloadRecord{
			UserID:     userID,
			SourceURL:  "https://example.com/v",
			Filename:   "clip.mp4",
			FormatID:   "22",
			SizeBytes:  size,
			ExecutedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}

	count, err := repo.GetUserDownloadCount(userID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("GetUserDownloadCount() = %d, want 2", count)
	}

	total, bytes, err := repo.GetTotals()
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || bytes != 350 {
		t.Errorf("GetTotals() = (%d, %d), want (2, 350)", total, bytes)
	}
}

func TestGetTotalsEmpty(t *testing.T) {
	_, repo, _ := testDownloadSetup(t)

	total, bytes, err := repo.GetTotals()
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 || bytes != 0 {
		t.Errorf("GetTotals() = (%d, %d), want zeros", total, bytes)
	}
}

func TestStatsRepository(t *testing.T) {
	db, _, userID := testDownloadSetup(t)
	stats := NewStatsRepository(db.DB)

	for _, cmd := range []string{"start", "start", "myplan"} {
		if err := stats.RecordCommand(&models.CommandStat{UserID: userID, Command: cmd}); err != nil {
			t.Fatalf("RecordCommand(%s): %v", cmd, err)
		}
	}

	total, err := stats.GetTotalCommands()
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("GetTotalCommands() = %d, want 3", total)
	}

	popular, err := stats.GetPopularCommands(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(popular) != 1 || popular[0].Command != "start" || popular[0].Count != 2 {
		t.Errorf("GetPopularCommands() = %+v", popular)
	}
}
