package domain

import (
	"context"
	"time"
)

// LedgerRepository is the durable store for ledger entries. Implementations
// must make WithRoomLock a real critical section per room: the availability
// re-check and the insert inside it are atomic with respect to concurrent
// callers for the same room.
type LedgerRepository interface {
	// Write paths
	WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context) error) error
	Insert(ctx context.Context, e LedgerEntry) error
	Update(ctx context.Context, e LedgerEntry) error
	// UpdateStatusIf transitions id from->to only when the current status
	// still matches (and, for holds, the hold has not expired at now).
	// Returns false when the guard failed.
	UpdateStatusIf(ctx context.Context, id string, from, to EntryStatus, now time.Time) (bool, error)
	// ExpireDue marks all due holds expired in one conditional write.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// Read paths
	Get(ctx context.Context, id string) (LedgerEntry, error)
	// ListOverlapping returns entries with status HOLD or CONFIRMED whose
	// interval overlaps stay. Hold expiry is filtered by the caller.
	ListOverlapping(ctx context.Context, roomID string, stay StayInterval) ([]LedgerEntry, error)
	FindByExternalRef(ctx context.Context, roomID string, ref ExternalRef) (*LedgerEntry, error)
}

// FeedRepository stores the configured external calendar feeds.
type FeedRepository interface {
	ListActive(ctx context.Context) ([]CalendarFeed, error)
	Save(ctx context.Context, f CalendarFeed) error
	MarkSynced(ctx context.Context, id string, at time.Time, syncErr error) error
}

// Cache is an advisory read cache; it is never a source of truth. Bump
// increments a generation counter used to version availability keys, which
// is how write paths invalidate reads they cannot enumerate.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
	Bump(ctx context.Context, key string) (int64, error)
	Gen(ctx context.Context, key string) (int64, error)
}

// FeedFetcher retrieves a raw calendar document. Implementations must apply
// a bounded timeout and must not be called while holding a room lock.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
