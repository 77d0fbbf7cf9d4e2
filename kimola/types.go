package kimola

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PresetType filters presets by model kind.
type PresetType string

const (
	PresetTypeExtractor  PresetType = "Extractor"
	PresetTypeClassifier PresetType = "Classifier"
)

// PresetCategory filters presets by category.
type PresetCategory string

const (
	PresetCategorySentiment PresetCategory = "Sentiment Classifier"
	PresetCategoryContent   PresetCategory = "Content Classifier"
)

// QueryType names the kind of work a query was consumed by.
type QueryType string

const (
	QueryTypeClassification QueryType = "Classification"
	QueryTypeTracking       QueryType = "Tracking"
	QueryTypeScraping       QueryType = "Scraping"
)

// Preset is a pretrained model.
type Preset struct {
	Key  string `json:"key"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// PresetPage is one page of the preset catalog.
type PresetPage struct {
	Total int      `json:"total"`
	Items []Preset `json:"items"`
}

// PresetLabel is a label a preset can predict.
type PresetLabel struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PredictionResult is one predicted label. Standard predictions carry a
// probability; aspect-based predictions carry a sentiment.
type PredictionResult struct {
	Name        string   `json:"name"`
	Probability *float64 `json:"probability,omitempty"`
	Sentiment   string   `json:"sentiment,omitempty"`
}

// Score returns the probability formatted with two decimals, or the sentiment
// when no probability is present.
func (p PredictionResult) Score() string {
	if p.Probability != nil {
		return strconv.FormatFloat(*p.Probability, 'f', 2, 64)
	}
	return p.Sentiment
}

// QueryReport identifies the report a query was spent on.
type QueryReport struct {
	Code  string `json:"code"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
}

// QueryRecord identifies the item a query was spent on.
type QueryRecord struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// QueryItem is one entry of query consumption history.
type QueryItem struct {
	Report QueryReport `json:"report"`
	Item   QueryRecord `json:"item"`
	Type   QueryType   `json:"type"`
	Amount int         `json:"amount"`
	Date   Timestamp   `json:"date"`
}

// Timestamp decodes API dates. Values without a zone are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

// QueryStat aggregates consumption for one query type.
type QueryStat struct {
	Name       QueryType `json:"name"`
	Count      int       `json:"count"`
	Ratio      float64   `json:"ratio"`
	Percentage int       `json:"percentage"`
}

// UsageBucket is consumption of one subscription resource.
type UsageBucket struct {
	Count      int     `json:"count"`
	Limit      int     `json:"limit"`
	Percentage float64 `json:"percentage"`
	Available  int     `json:"available"`
}

func (b UsageBucket) String() string {
	return fmt.Sprintf("%d/%d (%s%%)", b.Count, b.Limit, strconv.FormatFloat(b.Percentage, 'f', -1, 64))
}

// SubscriptionUsage reports consumed resources and quotas.
type SubscriptionUsage struct {
	Link    UsageBucket `json:"link"`
	Model   UsageBucket `json:"model"`
	Query   UsageBucket `json:"query"`
	Keyword UsageBucket `json:"keyword"`
}

// Buckets returns the usage buckets keyed by resource name in a stable order.
func (u SubscriptionUsage) Buckets() []NamedBucket {
	return []NamedBucket{
		{Resource: ResourceLink, UsageBucket: u.Link},
		{Resource: ResourceModel, UsageBucket: u.Model},
		{Resource: ResourceQuery, UsageBucket: u.Query},
		{Resource: ResourceKeyword, UsageBucket: u.Keyword},
	}
}

func (u SubscriptionUsage) String() string {
	return fmt.Sprintf("links=%s models=%s queries=%s keywords=%s", u.Link, u.Model, u.Query, u.Keyword)
}

// Subscription resource names.
const (
	ResourceLink    = "link"
	ResourceModel   = "model"
	ResourceQuery   = "query"
	ResourceKeyword = "keyword"
)

// NamedBucket pairs a resource name with its usage.
type NamedBucket struct {
	Resource string
	UsageBucket
}
