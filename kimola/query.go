package kimola

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPageSize = 10

	apiTimeLayout = "2006-01-02T15:04:05Z"
)

// queryString accumulates query parameters in insertion order.
type queryString struct {
	parts []string
}

func (q *queryString) addInt(name string, value int) *queryString {
	q.parts = append(q.parts, escape(name)+"="+strconv.Itoa(value))
	return q
}

func (q *queryString) addBool(name string, value bool) *queryString {
	q.parts = append(q.parts, escape(name)+"="+strconv.FormatBool(value))
	return q
}

func (q *queryString) addIfNotEmpty(name, value string) *queryString {
	if strings.TrimSpace(value) != "" {
		q.parts = append(q.parts, escape(name)+"="+escape(value))
	}
	return q
}

func (q *queryString) addTime(name string, t time.Time) *queryString {
	if t.IsZero() {
		return q
	}
	return q.addIfNotEmpty(name, formatTime(t))
}

func (q *queryString) String() string {
	if len(q.parts) == 0 {
		return ""
	}
	return "?" + strings.Join(q.parts, "&")
}

// escape percent-encodes s, spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(apiTimeLayout)
}

func normalizePaging(pageIndex, pageSize int) (int, int) {
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return pageIndex, pageSize
}
