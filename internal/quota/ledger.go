// Package quota enforces per-user daily count/size caps and the
// non-premium cooldown between uploads.
package quota

import (
	"fmt"
	"time"

	"github.com/artur/fetchbot/internal/database/models"
)

// Decision is the outcome of an admission check.
type Decision int

const (
	Allow Decision = iota
	DenyCount
	DenySize
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyCount:
		return "deny_count"
	case DenySize:
		return "deny_size"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// ProfileStore is the narrow persistence surface the ledger writes through.
type ProfileStore interface {
	ResetDaily(telegramUserID int64, day string) error
	AddUsage(telegramUserID int64, sizeBytes int64, uploadedAt time.Time) error
}

// Ledger tracks daily usage against a user's limits. All checks are pure
// arithmetic over the user record; only Refresh and Commit touch the store.
type Ledger struct {
	store    ProfileStore
	cooldown time.Duration
	now      func() time.Time
}

// NewLedger creates a Ledger. A cooldown of 0 disables cooldown checks.
func NewLedger(store ProfileStore, cooldown time.Duration) *Ledger {
	return &Ledger{
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Refresh lazily resets the user's daily counters when the stored day differs
// from the current UTC day. Calling it again on the same day is a no-op.
func (l *Ledger) Refresh(user *models.User) error {
	today := l.now().UTC().Format(time.DateOnly)
	if user.LastResetDay == today {
		return nil
	}

	user.UsedCountToday = 0
	user.UsedSizeToday = 0
	user.LastResetDay = today

	if err := l.store.ResetDaily(user.TelegramUserID, today); err != nil {
		return fmt.Errorf("failed to persist daily reset: %w", err)
	}
	return nil
}

// CheckAndReserve decides whether a file of candidateSize bytes may be
// admitted. A candidateSize of 0 means the size is unknown and only the count
// limit applies; the size is re-checked once actual bytes are known.
func (l *Ledger) CheckAndReserve(user *models.User, candidateSize int64) Decision {
	if user.DailyCountLimit > 0 && user.UsedCountToday >= user.DailyCountLimit {
		return DenyCount
	}

	if remaining, limited := l.RemainingSize(user); limited && candidateSize > 0 && candidateSize > remaining {
		return DenySize
	}

	return Allow
}

// RemainingSize returns the bytes left of today's size allowance. The second
// return value is false when the user has no size limit.
func (l *Ledger) RemainingSize(user *models.User) (int64, bool) {
	if user.DailySizeLimit <= 0 {
		return 0, false
	}
	remaining := user.DailySizeLimit - user.UsedSizeToday
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// CooldownRemaining returns how long the user must still wait before the next
// upload. Zero means the link may proceed. Premium users never wait.
func (l *Ledger) CooldownRemaining(user *models.User) time.Duration {
	if user.IsPremium || l.cooldown <= 0 || user.LastUploadAt.IsZero() {
		return 0
	}

	elapsed := l.now().Sub(user.LastUploadAt)
	if elapsed >= l.cooldown {
		return 0
	}
	return l.cooldown - elapsed
}

// Commit charges one delivered file of actualSize bytes. It must run exactly
// once per delivered file, after delivery succeeded.
func (l *Ledger) Commit(user *models.User, actualSize int64) error {
	now := l.now()

	user.UsedCountToday++
	user.UsedSizeToday += actualSize
	user.LastUploadAt = now

	if err := l.store.AddUsage(user.TelegramUserID, actualSize, now); err != nil {
		return fmt.Errorf("failed to persist usage: %w", err)
	}
	return nil
}
