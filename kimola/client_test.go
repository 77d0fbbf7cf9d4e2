package kimola

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedRequest struct {
	Method      string
	Path        string
	RawQuery    string
	Auth        string
	Accept      string
	ContentType string
	Body        string
}

type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, status: status, body: body}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.EscapedPath(),
			RawQuery:    r.URL.RawQuery,
			Auth:        r.Header.Get("Authorization"),
			Accept:      r.Header.Get("Accept"),
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(raw),
		})
		status, body := f.status, f.body
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(Options{APIKey: "test-key", BaseURL: f.server.URL + "/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (f *fakeAPI) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatalf("expected a request to be recorded")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func TestNewRequiresAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		if _, err := New(Options{APIKey: key}); !errors.Is(err, ErrMissingAPIKey) {
			t.Fatalf("New(%q) err = %v, want ErrMissingAPIKey", key, err)
		}
	}
}

func TestNewNormalizesBaseURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "default", in: "", want: "https://api.kimola.com/v1/"},
		{name: "no slash", in: "https://example.com/v1", want: "https://example.com/v1/"},
		{name: "many slashes", in: "https://example.com/v1///", want: "https://example.com/v1/"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(Options{APIKey: "k", BaseURL: tt.in})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := c.BaseURL(); got != tt.want {
				t.Fatalf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	if _, err := New(Options{APIKey: "k", BaseURL: "api.kimola.com"}); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}

func TestRequestsCarryBearerAndAccept(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"link":{"count":1,"limit":2,"percentage":50,"available":1}}`)
	c := api.client(t)

	if _, err := c.Subscription.Usage(context.Background(), UsageParams{}); err != nil {
		t.Fatalf("Usage: %v", err)
	}
	req := api.last(t)
	if req.Auth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", req.Auth)
	}
	if req.Accept != "application/json" {
		t.Fatalf("Accept = %q", req.Accept)
	}
	if req.Path != "/v1/subscription/usage" {
		t.Fatalf("path = %q", req.Path)
	}
	if req.RawQuery != "" {
		t.Fatalf("expected no query, got %q", req.RawQuery)
	}
}

func TestCustomHTTPClientIsWrapped(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	var seen bool
	base := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = true
		return http.DefaultTransport.RoundTrip(r)
	})}
	c, err := New(Options{APIKey: "abc", BaseURL: api.server.URL, HTTPClient: base})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Subscription.Usage(context.Background(), UsageParams{}); err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if !seen {
		t.Fatalf("expected custom transport to be used")
	}
	if got := api.last(t).Auth; got != "Bearer abc" {
		t.Fatalf("Authorization = %q", got)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestAPIErrorMessages(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		predicate func(error) bool
	}{
		{name: "bad request", status: 400, body: "", wantMsg: "missing/invalid Authorization header", predicate: IsBadRequest},
		{name: "bad request bearer", status: 400, body: "Bearer token missing", wantMsg: "missing Bearer token", predicate: IsBadRequest},
		{name: "unauthorized", status: 401, body: "", wantMsg: "invalid API key", predicate: IsUnauthorized},
		{name: "forbidden", status: 403, body: "", wantMsg: "cannot access this resource", predicate: IsForbidden},
		{name: "not found", status: 404, body: "", wantMsg: "HTTP 404", predicate: IsNotFound},
		{name: "rate limited", status: 429, body: "", wantMsg: "HTTP 429", predicate: IsRateLimited},
		{name: "server error with body", status: 502, body: "upstream down", wantMsg: "Body: upstream down", predicate: IsServerError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, tt.status, tt.body)
			c := api.client(t)
			_, err := c.Subscription.Usage(context.Background(), UsageParams{})
			if err == nil {
				t.Fatalf("expected error")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Fatalf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Body != tt.body {
				t.Fatalf("Body = %q, want %q", apiErr.Body, tt.body)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
			if !tt.predicate(err) {
				t.Fatalf("predicate returned false for %v", err)
			}
		})
	}
}

func TestEmptyResponseBody(t *testing.T) {
	for _, body := range []string{"", "null", "  "} {
		api := newFakeAPI(t, http.StatusOK, body)
		c := api.client(t)
		if _, err := c.Subscription.Usage(context.Background(), UsageParams{}); !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("body %q: err = %v, want ErrEmptyResponse", body, err)
		}
	}
}

func TestInvalidJSONResponse(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"link":`)
	c := api.client(t)
	_, err := c.Subscription.Usage(context.Background(), UsageParams{})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestCloseIsIdempotentAndBlocksCalls(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	c := api.client(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := c.Subscription.Usage(context.Background(), UsageParams{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if api.count() != 0 {
		t.Fatalf("expected no requests after close")
	}
}

func TestRequestHookObservesCalls(t *testing.T) {
	api := newFakeAPI(t, http.StatusForbidden, "")
	var infos []RequestInfo
	c, err := New(Options{
		APIKey:      "k",
		BaseURL:     api.server.URL,
		RequestHook: func(info RequestInfo) { infos = append(infos, info) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _ = c.Queries.Statistics(context.Background(), DateRange{Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)})
	if len(infos) != 1 {
		t.Fatalf("expected 1 hook call, got %d", len(infos))
	}
	info := infos[0]
	if info.Method != http.MethodGet || info.Path != "queries/statistics" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.StatusCode != http.StatusForbidden || !IsForbidden(info.Err) {
		t.Fatalf("expected forbidden in hook, got %+v", info)
	}
}

func TestContextCancellation(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	c := api.client(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Subscription.Usage(ctx, UsageParams{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestTimeoutUsesRequestDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(Options{APIKey: "test-key", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if c.http.Timeout != 0 {
		t.Fatalf("http.Client.Timeout = %v, want 0", c.http.Timeout)
	}

	_, err = c.Subscription.Usage(context.Background(), UsageParams{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("err = %v, want timeout message", err)
	}
}
