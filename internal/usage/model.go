package usage

import (
	"time"

	"github.com/google/uuid"

	"github.com/kimola/kimola-go/kimola"
)

// Snapshot is one recorded reading of subscription usage.
type Snapshot struct {
	ID      string    `json:"id"`
	TakenAt time.Time `json:"takenAt"`
	kimola.SubscriptionUsage
}

// NewSnapshot stamps usage with a fresh ID and the UTC time it was taken.
func NewSnapshot(u kimola.SubscriptionUsage, takenAt time.Time) Snapshot {
	return Snapshot{
		ID:                uuid.NewString(),
		TakenAt:           takenAt.UTC(),
		SubscriptionUsage: u,
	}
}

// Breach is a usage bucket at or above the alert threshold.
type Breach struct {
	Resource   string  `json:"resource"`
	Count      int     `json:"count"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
	Threshold  float64 `json:"threshold"`
}

// Breaches returns the buckets of s whose percentage reaches threshold.
// Buckets without a limit are never reported.
func Breaches(s Snapshot, threshold float64) []Breach {
	var out []Breach
	for _, b := range s.Buckets() {
		if b.Limit <= 0 || b.Percentage < threshold {
			continue
		}
		out = append(out, Breach{
			Resource:   b.Resource,
			Count:      b.Count,
			Limit:      b.Limit,
			Percentage: b.Percentage,
			Threshold:  threshold,
		})
	}
	return out
}
