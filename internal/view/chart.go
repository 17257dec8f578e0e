package view

import (
	"sort"

	"github.com/xiaopang/insight/internal/model"
)

// DefaultTopN is the bucket count for pie and bar charts.
const DefaultTopN = 5

// ChartPoint is one named value in a pie or bar chart.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DatePoint is one value on a date axis.
type DatePoint struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	Value int    `json:"value"`
}

// PerformancePoint is one day of the performance line charts.
type PerformancePoint struct {
	Date        string  `json:"date"`
	Label       string  `json:"label"`
	SuccessRate float64 `json:"success_rate"` // percent, one decimal
	Latency     float64 `json:"latency"`      // seconds, two decimals
	Volume      int     `json:"volume"`
}

// TopN keeps the n largest entries by value. Equal values keep their input
// order. n <= 0 means DefaultTopN.
func TopN(points []ChartPoint, n int) []ChartPoint {
	if n <= 0 {
		n = DefaultTopN
	}
	out := make([]ChartPoint, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// SourcePoints converts backend source counts to chart points.
func SourcePoints(sources []model.SourceCount) []ChartPoint {
	out := make([]ChartPoint, 0, len(sources))
	for _, s := range sources {
		out = append(out, ChartPoint{Name: s.Source, Value: s.Count})
	}
	return out
}

// QueryPoints converts backend query counts to chart points.
func QueryPoints(queries []model.QueryCount) []ChartPoint {
	out := make([]ChartPoint, 0, len(queries))
	for _, q := range queries {
		out = append(out, ChartPoint{Name: q.Query, Value: q.Count})
	}
	return out
}

// QueriesPerDay turns the date→count mapping into an ascending series.
func QueriesPerDay(perDay map[string]int) []DatePoint {
	dates := make([]string, 0, len(perDay))
	for d := range perDay {
		dates = append(dates, d)
	}
	// map order is random; fix it before the stable date sort
	sort.Strings(dates)

	points := make([]DatePoint, 0, len(dates))
	for _, d := range dates {
		points = append(points, DatePoint{Date: d, Label: FormatDate(d, ShortDate), Value: perDay[d]})
	}
	return SortChronological(points, func(p DatePoint) string { return p.Date })
}

// SortPerformance returns the series ascending by date.
func SortPerformance(series []model.DailyPerformance) []model.DailyPerformance {
	return SortChronological(series, func(d model.DailyPerformance) string { return d.Date })
}

// PerformancePoints builds the ascending chart series for daily metrics.
func PerformancePoints(series []model.DailyPerformance) []PerformancePoint {
	sorted := SortPerformance(series)
	out := make([]PerformancePoint, 0, len(sorted))
	for _, d := range sorted {
		out = append(out, PerformancePoint{
			Date:        d.Date,
			Label:       FormatDate(d.Date, ShortDate),
			SuccessRate: round(d.SuccessRate*100, 1),
			Latency:     round(d.AvgLatency, 2),
			Volume:      d.QueryVolume,
		})
	}
	return out
}

// Latest returns the most recent day in series.
func Latest(series []model.DailyPerformance) (model.DailyPerformance, bool) {
	sorted := SortPerformance(series)
	for i := len(sorted) - 1; i >= 0; i-- {
		if _, ok := ParseDate(sorted[i].Date); ok {
			return sorted[i], true
		}
	}
	return model.DailyPerformance{}, false
}
