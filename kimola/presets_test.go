package kimola

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestPresetsListQueryString(t *testing.T) {
	tests := []struct {
		name      string
		params    ListPresetsParams
		wantQuery string
	}{
		{name: "defaults", params: ListPresetsParams{}, wantQuery: "pageSize=10&pageIndex=0"},
		{name: "large page size", params: ListPresetsParams{PageSize: 50, PageIndex: 2}, wantQuery: "pageSize=50&pageIndex=2"},
		{name: "negative index", params: ListPresetsParams{PageSize: 5, PageIndex: -3}, wantQuery: "pageSize=5&pageIndex=0"},
		{
			name:      "filters",
			params:    ListPresetsParams{PageSize: 5, Type: PresetTypeClassifier, Category: PresetCategorySentiment},
			wantQuery: "pageSize=5&pageIndex=0&type=Classifier&category=Sentiment%20Classifier",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t, http.StatusOK, `{"total":1,"items":[{"key":"abcdefgh","slug":"s","name":"n"}]}`)
			c := api.client(t)
			page, err := c.Presets.List(context.Background(), tt.params)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Key != "abcdefgh" {
				t.Fatalf("unexpected page: %+v", page)
			}
			req := api.last(t)
			if req.Path != "/v1/presets" {
				t.Fatalf("path = %q", req.Path)
			}
			if req.RawQuery != tt.wantQuery {
				t.Fatalf("query = %q, want %q", req.RawQuery, tt.wantQuery)
			}
		})
	}
}

func TestPresetKeyValidation(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{}`)
	c := api.client(t)
	ctx := context.Background()

	for _, key := range []string{"", "   ", "short"} {
		if _, err := c.Presets.Get(ctx, key); !errors.Is(err, ErrInvalidPresetKey) {
			t.Fatalf("Get(%q) err = %v", key, err)
		}
		if _, err := c.Presets.Labels(ctx, key); !errors.Is(err, ErrInvalidPresetKey) {
			t.Fatalf("Labels(%q) err = %v", key, err)
		}
		if _, err := c.Presets.Predict(ctx, key, "text", PredictOptions{}); !errors.Is(err, ErrInvalidPresetKey) {
			t.Fatalf("Predict(%q) err = %v", key, err)
		}
	}
	if api.count() != 0 {
		t.Fatalf("expected validation to prevent requests, got %d", api.count())
	}
}

func TestPresetsGet(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"Key":"key-12345","Slug":"reviews","Name":"Reviews"}`)
	c := api.client(t)
	preset, err := c.Presets.Get(context.Background(), "key-12345")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if preset.Key != "key-12345" || preset.Slug != "reviews" || preset.Name != "Reviews" {
		t.Fatalf("unexpected preset (case-insensitive decode): %+v", preset)
	}
	if got := api.last(t).Path; got != "/v1/presets/key-12345" {
		t.Fatalf("path = %q", got)
	}
}

func TestPresetsGetEscapesKey(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"key":"a b/c?d123"}`)
	c := api.client(t)
	if _, err := c.Presets.Get(context.Background(), "a b/c?d123"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := api.last(t).Path; got != "/v1/presets/a%20b%2Fc%3Fd123" {
		t.Fatalf("path = %q", got)
	}
}

func TestPresetsLabelsNull(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `null`)
	c := api.client(t)
	labels, err := c.Presets.Labels(context.Background(), "key-12345")
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if labels != nil {
		t.Fatalf("expected nil labels, got %+v", labels)
	}
	if got := api.last(t).Path; got != "/v1/presets/key-12345/labels" {
		t.Fatalf("path = %q", got)
	}
}

func TestPresetsLabels(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[{"name":"Positive","description":"good"},{"name":"Negative"}]`)
	c := api.client(t)
	labels, err := c.Presets.Labels(context.Background(), "key-12345")
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 2 || labels[0].Name != "Positive" || labels[1].Description != "" {
		t.Fatalf("unexpected labels: %+v", labels)
	}
}

func TestPresetsPredict(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[{"name":"Positive","probability":0.934},{"name":"Price","sentiment":"Negative"}]`)
	c := api.client(t)

	results, err := c.Presets.Predict(context.Background(), "key-12345", `Loved the "quality"!`, PredictOptions{Language: "en"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if got := results[0].Score(); got != "0.93" {
		t.Fatalf("Score() = %q", got)
	}
	if got := results[1].Score(); got != "Negative" {
		t.Fatalf("Score() = %q", got)
	}

	req := api.last(t)
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s", req.Method)
	}
	if req.Path != "/v1/presets/key-12345/predictions" {
		t.Fatalf("path = %q", req.Path)
	}
	if req.RawQuery != "language=en&aspectBased=false" {
		t.Fatalf("query = %q", req.RawQuery)
	}
	if req.ContentType != "application/json" {
		t.Fatalf("content type = %q", req.ContentType)
	}
	var sent string
	if err := json.Unmarshal([]byte(req.Body), &sent); err != nil {
		t.Fatalf("body is not a JSON string: %q", req.Body)
	}
	if sent != `Loved the "quality"!` {
		t.Fatalf("sent %q", sent)
	}
}

func TestPresetsPredictAspectBased(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[]`)
	c := api.client(t)
	if _, err := c.Presets.Predict(context.Background(), "key-12345", "ok", PredictOptions{AspectBased: true}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := api.last(t).RawQuery; got != "aspectBased=true" {
		t.Fatalf("query = %q", got)
	}
}

func TestPresetsPredictRequiresText(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `[]`)
	c := api.client(t)
	if _, err := c.Presets.Predict(context.Background(), "key-12345", "  \n", PredictOptions{}); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
}

func TestPresetsAllPaginates(t *testing.T) {
	const total = 23
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		index, _ := strconv.Atoi(r.URL.Query().Get("pageIndex"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		var items []Preset
		for i := index * size; i < total && i < (index+1)*size; i++ {
			items = append(items, Preset{Key: fmt.Sprintf("preset-%03d", i)})
		}
		_ = json.NewEncoder(w).Encode(PresetPage{Total: total, Items: items})
	}))
	defer server.Close()

	c, err := New(Options{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var keys []string
	for p, err := range c.Presets.All(context.Background(), ListPresetsParams{}, 0) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		keys = append(keys, p.Key)
	}
	if len(keys) != total {
		t.Fatalf("expected %d presets, got %d", total, len(keys))
	}
	if keys[0] != "preset-000" || keys[total-1] != "preset-022" {
		t.Fatalf("unexpected keys: first=%s last=%s", keys[0], keys[total-1])
	}
	if calls != 3 {
		t.Fatalf("expected 3 page requests, got %d", calls)
	}
}

func TestPresetsAllHonoursMaxPagesAndBreak(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		items := make([]Preset, 10)
		for i := range items {
			items[i] = Preset{Key: fmt.Sprintf("preset-%d", i)}
		}
		_ = json.NewEncoder(w).Encode(PresetPage{Total: 1000, Items: items})
	}))
	defer server.Close()

	c, err := New(Options{APIKey: "k", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var n int
	for _, err := range c.Presets.All(context.Background(), ListPresetsParams{}, 2) {
		if err != nil {
			t.Fatalf("All: %v", err)
		}
		n++
	}
	if n != 20 || calls != 2 {
		t.Fatalf("expected 20 items over 2 calls, got %d items over %d calls", n, calls)
	}

	calls = 0
	for range c.Presets.All(context.Background(), ListPresetsParams{}, 5) {
		break
	}
	if calls != 1 {
		t.Fatalf("expected break to stop fetching, got %d calls", calls)
	}
}

func TestPresetsAllYieldsError(t *testing.T) {
	api := newFakeAPI(t, http.StatusUnauthorized, "")
	c := api.client(t)
	var errs int
	for _, err := range c.Presets.All(context.Background(), ListPresetsParams{}, 0) {
		if !IsUnauthorized(err) {
			t.Fatalf("err = %v", err)
		}
		errs++
	}
	if errs != 1 {
		t.Fatalf("expected exactly one error, got %d", errs)
	}
}
