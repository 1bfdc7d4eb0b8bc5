package models

import "time"

// DownloadRecord represents one delivered file
type DownloadRecord struct {
	ID         int64
	UserID     int64
	SourceURL  string
	Filename   string
	FormatID   string
	SizeBytes  int64
	ExecutedAt time.Time
}
