package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.RWMutex
	data []Snapshot // oldest first
}

// NewMemoryStore constructs a process-local snapshot store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Insert(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.data), func(i int) bool { return s.data[i].TakenAt.After(snap.TakenAt) })
	s.data = append(s.data, Snapshot{})
	copy(s.data[i+1:], s.data[i:])
	s.data[i] = snap
	return nil
}

func (s *memoryStore) Latest(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.data) == 0 {
		return Snapshot{}, ErrNoSnapshots
	}
	return s.data[len(s.data)-1], nil
}

func (s *memoryStore) List(ctx context.Context, since time.Time, limit int) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, min(limit, len(s.data)))
	for i := len(s.data) - 1; i >= 0 && len(out) < limit; i-- {
		if s.data[i].TakenAt.Before(since) {
			break
		}
		out = append(out, s.data[i])
	}
	return out, nil
}

func (s *memoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := sort.Search(len(s.data), func(i int) bool { return !s.data[i].TakenAt.Before(before) })
	s.data = append([]Snapshot(nil), s.data[i:]...)
	return int64(i), nil
}
