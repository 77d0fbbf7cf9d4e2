package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/internal/shared/telemetry"
	"github.com/kimola/kimola-go/kimola"
)

// UsageFetcher reads current subscription usage. *kimola.SubscriptionService satisfies it.
type UsageFetcher interface {
	Usage(ctx context.Context, params kimola.UsageParams) (*kimola.SubscriptionUsage, error)
}

// Poller periodically records usage and raises alerts.
type Poller struct {
	fetcher  UsageFetcher
	svc      *Service
	notifier Notifier
	interval time.Duration

	mu      sync.Mutex
	alerted map[string]bool
	lastOK  time.Time
}

// NewPoller constructs a Poller. A nil notifier logs alerts.
func NewPoller(fetcher UsageFetcher, svc *Service, notifier Notifier, interval time.Duration) *Poller {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Poller{
		fetcher:  fetcher,
		svc:      svc,
		notifier: notifier,
		interval: interval,
		alerted:  make(map[string]bool),
	}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
		telemetry.Error("monitor.poll.failed", map[string]any{"err": err})
	}
}

// PollOnce fetches, records and evaluates a single usage reading.
func (p *Poller) PollOnce(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	u, err := p.fetcher.Usage(ctx, kimola.UsageParams{})
	if err != nil {
		metrics.IncPollFailed()
		return Snapshot{}, err
	}
	snap, err := p.svc.Record(ctx, *u)
	if err != nil {
		metrics.IncPollFailed()
		return Snapshot{}, fmt.Errorf("%w: %w", ErrRecordFailed, err)
	}
	metrics.IncPoll()
	p.mu.Lock()
	p.lastOK = snap.TakenAt
	p.mu.Unlock()

	breaches := p.svc.Breaches(snap)
	for _, b := range p.newBreaches(breaches) {
		alert := Alert{Breach: b, SnapshotID: snap.ID, TakenAt: snap.TakenAt}
		if err := p.notifier.Notify(ctx, alert); err != nil {
			metrics.IncAlertFailed()
			telemetry.Error("monitor.alert.failed", map[string]any{"resource": b.Resource, "err": err})
			p.forget(b.Resource)
			continue
		}
		metrics.IncAlertSent()
	}

	if pruned, err := p.svc.Prune(ctx); err != nil {
		telemetry.Warn("monitor.prune.failed", map[string]any{"err": err})
	} else if pruned > 0 {
		telemetry.Info("monitor.prune.completed", map[string]any{"deleted": pruned})
	}

	telemetry.Info("monitor.poll.completed", map[string]any{
		"snapshot_id": snap.ID,
		"breaches":    len(breaches),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return snap, nil
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// LastSuccess returns when usage was last recorded, or the zero time.
func (p *Poller) LastSuccess() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastOK
}

// newBreaches returns the breaches not yet alerted on and re-arms buckets
// that have dropped back under the threshold.
func (p *Poller) newBreaches(breaches []Breach) []Breach {
	p.mu.Lock()
	defer p.mu.Unlock()
	current := make(map[string]bool, len(breaches))
	var fresh []Breach
	for _, b := range breaches {
		current[b.Resource] = true
		if !p.alerted[b.Resource] {
			p.alerted[b.Resource] = true
			fresh = append(fresh, b)
		}
	}
	for resource := range p.alerted {
		if !current[resource] {
			delete(p.alerted, resource)
		}
	}
	return fresh
}

func (p *Poller) forget(resource string) {
	p.mu.Lock()
	delete(p.alerted, resource)
	p.mu.Unlock()
}
