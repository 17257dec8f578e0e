// Package view turns backend DTOs into render-ready view models.
//
// Everything here is pure: no I/O, no clocks except where a time is passed
// in, and inputs are never mutated.
package view

import (
	"math"
	"strconv"
	"time"
)

// Placeholder is shown for values that are missing or undefined.
const Placeholder = "--"

// Date display layouts.
const (
	ShortDate = "Jan 02"
	LongDate  = "Jan 02, 2006"
	DateTime  = "Jan 02, 2006 15:04"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseDate parses the ISO date and timestamp forms the backend emits.
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders raw with layout, or returns raw untouched when it does
// not parse.
func FormatDate(raw, layout string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return raw
	}
	return t.Format(layout)
}

// FormatPercent renders count/total as a one-decimal percentage.
// A zero, negative or NaN total yields Placeholder.
func FormatPercent(count, total float64) string {
	if total <= 0 || math.IsNaN(total) || math.IsNaN(count) {
		return Placeholder
	}
	return formatPct(count / total * 100)
}

// FormatRate renders a 0..1 ratio as a percentage, Placeholder when nil.
func FormatRate(rate *float64) string {
	if rate == nil || math.IsNaN(*rate) || math.IsInf(*rate, 0) {
		return Placeholder
	}
	return formatPct(*rate * 100)
}

// FormatSeconds renders seconds with two decimals, Placeholder when nil.
func FormatSeconds(sec *float64) string {
	if sec == nil || math.IsNaN(*sec) || math.IsInf(*sec, 0) {
		return Placeholder
	}
	return strconv.FormatFloat(*sec, 'f', 2, 64) + "s"
}

// FormatCount renders an integer count.
func FormatCount(n int) string {
	return strconv.Itoa(n)
}

// FormatSize renders a byte size in kilobytes with one decimal.
func FormatSize(bytes int64) string {
	return strconv.FormatFloat(float64(bytes)/1024, 'f', 1, 64) + " KB"
}

// Plural picks the singular or plural noun for n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func formatPct(v float64) string {
	return strconv.FormatFloat(round(v, 1), 'f', 1, 64) + "%"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
