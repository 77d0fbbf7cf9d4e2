package kimola

import (
	"context"
	"net/http"
	"time"
)

// SubscriptionService covers subscription usage.
type SubscriptionService struct {
	client *Client
}

// UsageParams selects the usage period. A zero Date means the current period.
type UsageParams struct {
	Date time.Time
}

// Usage returns consumed resources and quotas for links, models, queries and keywords.
func (s *SubscriptionService) Usage(ctx context.Context, params UsageParams) (*SubscriptionUsage, error) {
	qs := (&queryString{}).addTime("date", params.Date)

	var usage SubscriptionUsage
	if err := s.client.do(ctx, http.MethodGet, "subscription/usage"+qs.String(), nil, &usage, false); err != nil {
		return nil, err
	}
	return &usage, nil
}
