package usage

import (
	"context"
	"time"
)

// DefaultHistoryLimit bounds List when the caller passes no limit.
const DefaultHistoryLimit = 100

// MaxHistoryLimit is the largest page List returns.
const MaxHistoryLimit = 1000

// Store persists usage snapshots.
type Store interface {
	Insert(ctx context.Context, s Snapshot) error
	// Latest returns ErrNoSnapshots when the store is empty.
	Latest(ctx context.Context) (Snapshot, error)
	// List returns snapshots taken at or after since, newest first.
	List(ctx context.Context, since time.Time, limit int) ([]Snapshot, error)
	// Prune deletes snapshots taken before the cutoff and reports how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

func validateSnapshot(s Snapshot) error {
	if s.ID == "" || s.TakenAt.IsZero() {
		return ErrInvalidSnapshot
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
