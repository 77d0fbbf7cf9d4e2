package usage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/kimola"
)

func newTestRouter(t *testing.T, svc *Service, poller *Poller) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, poller)
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterOperatorRoutes(api)
	return r
}

func TestGetLatestEmpty(t *testing.T) {
	r := newTestRouter(t, NewService(NewMemoryStore(), 80, 0), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/usage/latest", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestGetLatestIncludesBreaches(t *testing.T) {
	svc := NewService(NewMemoryStore(), 80, 0)
	if _, err := svc.Record(context.Background(), sampleUsage(85)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	r := newTestRouter(t, svc, nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/usage/latest", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		ID       string             `json:"id"`
		Query    kimola.UsageBucket `json:"query"`
		Breaches []Breach           `json:"breaches"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID == "" || body.Query.Percentage != 85 {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
	if len(body.Breaches) != 1 || body.Breaches[0].Resource != kimola.ResourceQuery {
		t.Fatalf("unexpected breaches: %+v", body.Breaches)
	}
}

func TestGetHistoryValidation(t *testing.T) {
	r := newTestRouter(t, NewService(NewMemoryStore(), 80, 0), nil)
	for _, path := range []string{
		"/api/v1/usage/history?since=yesterday",
		"/api/v1/usage/history?limit=0",
		"/api/v1/usage/history?limit=abc",
		"/api/v1/usage/history?limit=5000",
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, resp.Code)
		}
	}
}

func TestGetHistory(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := store.Insert(context.Background(), NewSnapshot(sampleUsage(10), base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	r := newTestRouter(t, NewService(store, 80, 0), nil)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/usage/history?since=2025-03-02&limit=10", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Count     int     `json:"count"`
		Threshold float64 `json:"threshold"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || body.Threshold != 80 {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestPollEndpoint(t *testing.T) {
	svc := NewService(NewMemoryStore(), 80, 0)
	fetcher := &fakeFetcher{usages: []kimola.SubscriptionUsage{sampleUsage(20)}}
	r := newTestRouter(t, svc, NewPoller(fetcher, svc, nil, time.Minute))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/usage/poll", nil))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if _, err := svc.Latest(context.Background()); err != nil {
		t.Fatalf("expected snapshot recorded: %v", err)
	}
}

func TestPollEndpointUpstreamError(t *testing.T) {
	svc := NewService(NewMemoryStore(), 80, 0)
	fetcher := &fakeFetcher{err: &kimola.APIError{StatusCode: http.StatusForbidden, Message: "Forbidden"}}
	r := newTestRouter(t, svc, NewPoller(fetcher, svc, nil, time.Minute))

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/usage/poll", nil))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestPollEndpointDisabled(t *testing.T) {
	r := newTestRouter(t, NewService(NewMemoryStore(), 80, 0), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/usage/poll", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
