package usage

import (
	"strconv"
	"strings"

	"github.com/kimola/kimola-go/kimola"
)

const snapshotColumns = `id, taken_at,
 link_count, link_limit, link_percentage, link_available,
 model_count, model_limit, model_percentage, model_available,
 query_count, query_limit, query_percentage, query_available,
 keyword_count, keyword_limit, keyword_percentage, keyword_available`

type rowScanner interface {
	Scan(dest ...any) error
}

func bucketArgs(s Snapshot) []any {
	args := make([]any, 0, 16)
	for _, b := range []kimola.UsageBucket{s.Link, s.Model, s.Query, s.Keyword} {
		args = append(args, b.Count, b.Limit, b.Percentage, b.Available)
	}
	return args
}

func bucketDest(s *Snapshot) []any {
	dest := make([]any, 0, 16)
	for _, b := range []*kimola.UsageBucket{&s.Link, &s.Model, &s.Query, &s.Keyword} {
		dest = append(dest, &b.Count, &b.Limit, &b.Percentage, &b.Available)
	}
	return dest
}

// placeholders renders n bind parameters starting at 1, e.g. "$1, $2" or "?, ?".
func placeholders(n int, dollar bool) string {
	parts := make([]string, n)
	for i := range parts {
		if dollar {
			parts[i] = "$" + strconv.Itoa(i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}
