// Package report builds usage reports from the Kimola API and archives them
// to an object store.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kimola/kimola-go/internal/shared/metrics"
	"github.com/kimola/kimola-go/internal/shared/storage/object"
	"github.com/kimola/kimola-go/kimola"
)

// KeyPrefix is the object-store prefix reports are archived under.
const KeyPrefix = "reports"

// ErrInvalidRange is returned when a range ends before it starts.
var ErrInvalidRange = errors.New("report range end precedes start")

// Source is the subset of the Kimola client a report reads from.
type Source interface {
	Usage(ctx context.Context, params kimola.UsageParams) (*kimola.SubscriptionUsage, error)
	Statistics(ctx context.Context, r kimola.DateRange) ([]kimola.QueryStat, error)
}

// Report summarises subscription usage and query consumption for a range.
type Report struct {
	ID           string                   `json:"id"`
	GeneratedAt  time.Time                `json:"generatedAt"`
	Start        *time.Time               `json:"start,omitempty"`
	End          *time.Time               `json:"end,omitempty"`
	Usage        kimola.SubscriptionUsage `json:"usage"`
	Statistics   []kimola.QueryStat       `json:"statistics"`
	TotalQueries int                      `json:"totalQueries"`
}

// Key returns the object key the report is archived under.
func (r Report) Key() string {
	return path.Join(KeyPrefix, r.GeneratedAt.UTC().Format("2006-01-02"), r.ID+".json")
}

// ClientSource adapts a *kimola.Client to Source.
func ClientSource(c *kimola.Client) Source {
	return clientSource{c: c}
}

type clientSource struct {
	c *kimola.Client
}

func (s clientSource) Usage(ctx context.Context, params kimola.UsageParams) (*kimola.SubscriptionUsage, error) {
	return s.c.Subscription.Usage(ctx, params)
}

func (s clientSource) Statistics(ctx context.Context, r kimola.DateRange) ([]kimola.QueryStat, error) {
	return s.c.Queries.Statistics(ctx, r)
}

var now = time.Now

// Build fetches usage and query statistics concurrently. Usage is read as of
// the range end, or the current period when the end is zero.
func Build(ctx context.Context, src Source, r kimola.DateRange) (Report, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return Report{}, ErrInvalidRange
	}

	var (
		usage *kimola.SubscriptionUsage
		stats []kimola.QueryStat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := src.Usage(gctx, kimola.UsageParams{Date: r.End})
		if err != nil {
			return fmt.Errorf("fetch usage: %w", err)
		}
		usage = u
		return nil
	})
	g.Go(func() error {
		s, err := src.Statistics(gctx, r)
		if err != nil {
			return fmt.Errorf("fetch query statistics: %w", err)
		}
		stats = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{
		ID:          uuid.NewString(),
		GeneratedAt: now().UTC(),
		Start:       optionalTime(r.Start),
		End:         optionalTime(r.End),
		Statistics:  stats,
	}
	if usage != nil {
		rep.Usage = *usage
	}
	if rep.Statistics == nil {
		rep.Statistics = []kimola.QueryStat{}
	}
	for _, s := range rep.Statistics {
		rep.TotalQueries += s.Count
	}
	return rep, nil
}

// Archive writes r as indented JSON to store and returns the object key.
func Archive(ctx context.Context, store object.ObjectStore, r Report) (string, error) {
	if store == nil {
		return "", errors.New("report store is not configured")
	}
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	key := r.Key()
	if _, err := store.Put(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("archive report key=%s: %w", key, err)
	}
	metrics.IncReportArchived()
	return key, nil
}

// Load reads an archived report back from store.
func Load(ctx context.Context, store object.ObjectStore, key string) (Report, error) {
	rc, err := store.Open(ctx, key)
	if err != nil {
		return Report{}, fmt.Errorf("open report key=%s: %w", key, err)
	}
	defer rc.Close()

	var r Report
	if err := json.NewDecoder(rc).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decode report key=%s: %w", key, err)
	}
	return r, nil
}

// List returns archived report keys, optionally limited to one UTC day.
func List(ctx context.Context, store object.ObjectStore, day time.Time) ([]string, error) {
	prefix := KeyPrefix + "/"
	if !day.IsZero() {
		prefix = path.Join(KeyPrefix, day.UTC().Format("2006-01-02")) + "/"
	}
	return store.List(ctx, prefix)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
