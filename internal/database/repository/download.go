package repository

import (
	"database/sql"
	"fmt"

	"github.com/artur/fetchbot/internal/database/models"
)

// DownloadRepository handles delivered-file persistence
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Record records a delivered file
func (r *DownloadRepository) Record(record *models.DownloadRecord) error {
	query := `
		INSERT INTO downloads
		(user_id, source_url, filename, format_id, size_bytes, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		record.UserID,
		record.SourceURL,
		record.Filename,
		record.FormatID,
		record.SizeBytes,
		record.ExecutedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}

	return nil
}

// GetUserDownloadCount returns total delivered files for a user
func (r *DownloadRepository) GetUserDownloadCount(userID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM downloads WHERE user_id = ?`
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}

// GetTotals returns the total number of delivered files and their byte sum
func (r *DownloadRepository) GetTotals() (int64, int64, error) {
	var count, bytes int64
	err := r.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM downloads").Scan(&count, &bytes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get download totals: %w", err)
	}
	return count, bytes, nil
}
