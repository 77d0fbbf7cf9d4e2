package usage

import (
	"context"
	"errors"
	"time"

	"github.com/kimola/kimola-go/internal/queue"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
)

// Alert announces a bucket that crossed the threshold in a snapshot.
type Alert struct {
	Breach
	SnapshotID string    `json:"snapshotId"`
	TakenAt    time.Time `json:"takenAt"`
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

// Notify logs the alert at warn level.
func (LogNotifier) Notify(ctx context.Context, a Alert) error {
	telemetry.Warn("usage.threshold", map[string]any{
		"resource":    a.Resource,
		"count":       a.Count,
		"limit":       a.Limit,
		"percentage":  a.Percentage,
		"threshold":   a.Threshold,
		"snapshot_id": a.SnapshotID,
	})
	return nil
}

// QueueNotifier publishes alerts as queue messages.
type QueueNotifier struct {
	Client queue.Client
	now    func() time.Time
}

// NewQueueNotifier constructs a notifier sending to client.
func NewQueueNotifier(client queue.Client) *QueueNotifier {
	return &QueueNotifier{Client: client, now: time.Now}
}

// Notify sends the alert to the queue.
func (n *QueueNotifier) Notify(ctx context.Context, a Alert) error {
	now := time.Now
	if n.now != nil {
		now = n.now
	}
	return n.Client.Send(ctx, queue.Message{
		Type:       queue.TypeUsageThreshold,
		Resource:   a.Resource,
		Count:      a.Count,
		Limit:      a.Limit,
		Percentage: a.Percentage,
		Threshold:  a.Threshold,
		SnapshotID: a.SnapshotID,
		TakenAt:    a.TakenAt,
		EnqueuedAt: now().UTC(),
		Version:    queue.MessageVersion,
	})
}

// MultiNotifier fans an alert out to every notifier and joins their errors.
type MultiNotifier []Notifier

// Notify calls each notifier in order, even after one fails.
func (m MultiNotifier) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
