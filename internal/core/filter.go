package core

import (
	"strings"

	"github.com/xiaopang/insight/internal/model"
)

// NormalizeSearch trims a search term. An empty result means no filter.
func NormalizeSearch(term string) string {
	return strings.TrimSpace(term)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// FilterHistory keeps records whose query or response text contains term,
// ignoring case. It never queries the backend.
func FilterHistory(records []model.QueryRecord, term string) []model.QueryRecord {
	term = NormalizeSearch(term)
	out := make([]model.QueryRecord, 0, len(records))
	for _, r := range records {
		if term == "" || containsFold(r.Query, term) || containsFold(r.Response, term) {
			out = append(out, r)
		}
	}
	return out
}

// FilterSources keeps sources whose name contains term, ignoring case.
func FilterSources(sources []model.SourceCount, term string) []model.SourceCount {
	term = NormalizeSearch(term)
	out := make([]model.SourceCount, 0, len(sources))
	for _, s := range sources {
		if term == "" || containsFold(s.Source, term) {
			out = append(out, s)
		}
	}
	return out
}
