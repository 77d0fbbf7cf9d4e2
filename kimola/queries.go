package kimola

import (
	"context"
	"net/http"
	"time"
)

// QueriesService covers query consumption history and statistics.
type QueriesService struct {
	client *Client
}

// DateRange bounds a request in UTC. Zero times are omitted.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ListQueriesParams pages and filters query history.
type ListQueriesParams struct {
	PageIndex int
	PageSize  int
	DateRange
}

// List returns one page of query consumption history.
func (s *QueriesService) List(ctx context.Context, params ListQueriesParams) ([]QueryItem, error) {
	pageIndex, pageSize := normalizePaging(params.PageIndex, params.PageSize)
	qs := (&queryString{}).
		addInt("pageIndex", pageIndex).
		addInt("pageSize", pageSize).
		addTime("startDate", params.Start).
		addTime("endDate", params.End)

	var items []QueryItem
	if err := s.client.do(ctx, http.MethodGet, "queries"+qs.String(), nil, &items, false); err != nil {
		return nil, err
	}
	return items, nil
}

// Statistics returns consumption aggregated by query type.
func (s *QueriesService) Statistics(ctx context.Context, r DateRange) ([]QueryStat, error) {
	qs := (&queryString{}).
		addTime("startDate", r.Start).
		addTime("endDate", r.End)

	var stats []QueryStat
	if err := s.client.do(ctx, http.MethodGet, "queries/statistics"+qs.String(), nil, &stats, false); err != nil {
		return nil, err
	}
	return stats, nil
}
