package database

import (
	"fmt"
	"log/slog"
)

// Migrate runs all database migrations
func (db *DB) Migrate() error {
	slog.Debug("running migrations")

	migrations := []string{
		// Users table: identity, daily quota counters and preference flags
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			telegram_user_id INTEGER NOT NULL UNIQUE,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			language_code TEXT,
			is_premium BOOLEAN NOT NULL DEFAULT 0,
			is_banned BOOLEAN NOT NULL DEFAULT 0,
			daily_count_limit INTEGER NOT NULL DEFAULT 0,
			daily_size_limit INTEGER NOT NULL DEFAULT 0,
			used_count_today INTEGER NOT NULL DEFAULT 0,
			used_size_today INTEGER NOT NULL DEFAULT 0,
			last_reset_day TEXT NOT NULL DEFAULT '',
			last_upload_at DATETIME,
			send_screenshots BOOLEAN NOT NULL DEFAULT 0,
			send_sample BOOLEAN NOT NULL DEFAULT 0,
			sample_duration INTEGER NOT NULL DEFAULT 0,
			spoiler BOOLEAN NOT NULL DEFAULT 0,
			upload_mode TEXT NOT NULL DEFAULT 'video',
			caption TEXT,
			prefix TEXT,
			suffix TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_telegram_id ON users(telegram_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at)`,

		// Command stats table
		`CREATE TABLE IF NOT EXISTS command_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			command TEXT NOT NULL,
			executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_command_stats_user_id ON command_stats(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_command_stats_command ON command_stats(command)`,
		`CREATE INDEX IF NOT EXISTS idx_command_stats_executed_at ON command_stats(executed_at)`,

		// Delivered files table
		`CREATE TABLE IF NOT EXISTS downloads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			source_url TEXT NOT NULL,
			filename TEXT,
			format_id TEXT,
			size_bytes INTEGER,
			executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_user_id ON downloads(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_downloads_executed_at ON downloads(executed_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	slog.Debug("migrations completed")
	return nil
}
