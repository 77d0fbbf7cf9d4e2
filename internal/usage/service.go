package usage

import (
	"context"
	"time"

	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/kimola"
)

// DefaultThreshold is the alert percentage used when none is configured.
const DefaultThreshold = 80

// Service records and queries usage snapshots via an underlying store.
type Service struct {
	store     Store
	threshold float64
	retention time.Duration
	now       func() time.Time
}

// NewService constructs a Service over store. A non-positive threshold
// falls back to DefaultThreshold; zero retention keeps snapshots forever.
func NewService(store Store, threshold float64, retention time.Duration) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{
		store:     store,
		threshold: threshold,
		retention: retention,
		now:       time.Now,
	}
}

// Threshold returns the alert percentage.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Record stores a new snapshot of u.
func (s *Service) Record(ctx context.Context, u kimola.SubscriptionUsage) (Snapshot, error) {
	snap := NewSnapshot(u, s.now())
	if err := s.store.Insert(ctx, snap); err != nil {
		return Snapshot{}, err
	}
	for _, b := range snap.Buckets() {
		metrics.SetUsagePercentage(b.Resource, b.Percentage)
	}
	return snap, nil
}

// Latest returns the most recent snapshot.
func (s *Service) Latest(ctx context.Context) (Snapshot, error) {
	return s.store.Latest(ctx)
}

// History returns snapshots taken since the given time, newest first.
func (s *Service) History(ctx context.Context, since time.Time, limit int) ([]Snapshot, error) {
	return s.store.List(ctx, since, limit)
}

// Breaches reports the buckets of snap at or above the service threshold.
func (s *Service) Breaches(snap Snapshot) []Breach {
	return Breaches(snap, s.threshold)
}

// Prune drops snapshots older than the retention window.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	return s.store.Prune(ctx, s.now().Add(-s.retention))
}
