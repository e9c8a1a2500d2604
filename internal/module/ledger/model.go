package ledger

import (
	"context"
	"time"
)

// DefaultQuota is the count a user is reset to.
const DefaultQuota = 5

// Document names.
const (
	UsersDocument   = "users"
	HistoryDocument = "history"
)

// Quota is a user's remaining generation count.
type Quota struct {
	Count int `json:"count"`
}

// HistoryEntry is one generated image. Entries are stored newest first.
type HistoryEntry struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// Quotas is the users document.
type Quotas map[string]Quota

// Histories is the history document.
type Histories map[string][]HistoryEntry

// Store is the quota and history ledger.
type Store interface {
	// Count returns the remaining count, 0 for unknown users.
	Count(ctx context.Context, userID string) (int, error)

	// DecrementQuota lowers the count by one, never below zero.
	// An unknown user is recorded with a count of 0.
	DecrementQuota(ctx context.Context, userID string) error

	// ResetQuota sets the count to DefaultQuota.
	ResetQuota(ctx context.Context, userID string) error

	// Share adds one to the count and returns the new value.
	Share(ctx context.Context, userID string) (int, error)

	// AppendHistory records url as the newest entry.
	AppendHistory(ctx context.Context, userID, url string, at time.Time) error

	// History lists entries newest first. Unknown users get an empty slice.
	History(ctx context.Context, userID string) ([]HistoryEntry, error)

	// DeleteHistory removes every entry whose URL equals url.
	// Returns ErrNoHistory when the user has no history record.
	DeleteHistory(ctx context.Context, userID, url string) error
}
