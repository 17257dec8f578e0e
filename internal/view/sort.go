package view

import (
	"sort"
	"time"
)

// SortChronological returns a copy of items ordered ascending by the date
// dateOf extracts. The sort is stable. Items whose date does not parse keep
// their relative order and go after every parseable one.
func SortChronological[T any](items []T, dateOf func(T) string) []T {
	type keyed struct {
		item T
		at   time.Time
		ok   bool
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		at, ok := ParseDate(dateOf(it))
		ks[i] = keyed{item: it, at: at, ok: ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.at.Before(b.at)
	})

	out := make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out
}
