package kimola

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

const (
	minPresetKeyLength = 8
	defaultMaxPages    = 100
)

// PresetsService covers the presets endpoints.
type PresetsService struct {
	client *Client
}

// ListPresetsParams filters and pages the preset catalog. Zero values select
// the defaults (first page, ten items, no filters).
type ListPresetsParams struct {
	PageSize  int
	PageIndex int
	Type      PresetType
	Category  PresetCategory
}

// PredictOptions tunes a prediction request.
type PredictOptions struct {
	// Language is an ISO-639-1 code such as "en" or "tr". Empty lets the API detect it.
	Language string
	// AspectBased requests per-aspect sentiments instead of a dominant label.
	AspectBased bool
}

// List returns one page of presets.
func (s *PresetsService) List(ctx context.Context, params ListPresetsParams) (*PresetPage, error) {
	pageIndex, pageSize := normalizePaging(params.PageIndex, params.PageSize)
	qs := (&queryString{}).
		addInt("pageSize", pageSize).
		addInt("pageIndex", pageIndex).
		addIfNotEmpty("type", string(params.Type)).
		addIfNotEmpty("category", string(params.Category))

	var page PresetPage
	if err := s.client.do(ctx, http.MethodGet, "presets"+qs.String(), nil, &page, false); err != nil {
		return nil, err
	}
	return &page, nil
}

// All iterates over every preset matching params, fetching pages on demand.
// Iteration stops after a short page, after maxPages pages (100 when
// maxPages <= 0), or at the first error, which is yielded once.
func (s *PresetsService) All(ctx context.Context, params ListPresetsParams, maxPages int) iter.Seq2[Preset, error] {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return func(yield func(Preset, error) bool) {
		p := params
		_, size := normalizePaging(0, p.PageSize)
		p.PageSize = size
		for pages := 0; pages < maxPages; pages++ {
			p.PageIndex = pages
			page, err := s.List(ctx, p)
			if err != nil {
				yield(Preset{}, err)
				return
			}
			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
			}
			if len(page.Items) < size {
				return
			}
		}
	}
}

// Get returns the preset identified by key.
func (s *PresetsService) Get(ctx context.Context, key string) (*Preset, error) {
	if err := validatePresetKey(key); err != nil {
		return nil, err
	}
	var preset Preset
	if err := s.client.do(ctx, http.MethodGet, "presets/"+url.PathEscape(key), nil, &preset, false); err != nil {
		return nil, err
	}
	return &preset, nil
}

// Labels returns the labels of a preset. A preset without labels yields a nil
// slice and no error.
func (s *PresetsService) Labels(ctx context.Context, key string) ([]PresetLabel, error) {
	if err := validatePresetKey(key); err != nil {
		return nil, err
	}
	var labels []PresetLabel
	if err := s.client.do(ctx, http.MethodGet, "presets/"+url.PathEscape(key)+"/labels", nil, &labels, true); err != nil {
		return nil, err
	}
	return labels, nil
}

// Predict runs the preset against text. The text is sent as a raw JSON string.
func (s *PresetsService) Predict(ctx context.Context, key, text string, opts PredictOptions) ([]PredictionResult, error) {
	if err := validatePresetKey(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	qs := (&queryString{}).
		addIfNotEmpty("language", opts.Language).
		addBool("aspectBased", opts.AspectBased)

	var results []PredictionResult
	path := "presets/" + url.PathEscape(key) + "/predictions" + qs.String()
	if err := s.client.do(ctx, http.MethodPost, path, text, &results, false); err != nil {
		return nil, err
	}
	return results, nil
}

func validatePresetKey(key string) error {
	if len(strings.TrimSpace(key)) < minPresetKeyLength {
		return ErrInvalidPresetKey
	}
	return nil
}
