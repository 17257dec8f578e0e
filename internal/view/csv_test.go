package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaopang/insight/internal/model"
)

func TestExportCSV_MatchesScreenFormatting(t *testing.T) {
	doc, err := ExportCSV([]model.DailyPerformance{
		{Date: "2024-05-02", QueryVolume: 4, SuccessRate: 0.75, AvgLatency: 1.5},
		{Date: "2024-05-01", QueryVolume: 0, SuccessRate: 0, AvgLatency: 0},
	})
	require.NoError(t, err)

	want := "Date,Query Volume,Success Rate,Average Latency\n" +
		"2024-05-01,0,0.0%,0.00s\n" +
		"2024-05-02,4,75.0%,1.50s\n"
	assert.Equal(t, want, doc)
	assert.True(t, strings.HasSuffix(doc, "\n"))
}

func TestExportCSV_EmptySeriesHasHeaderOnly(t *testing.T) {
	doc, err := ExportCSV(nil)
	require.NoError(t, err)
	assert.Equal(t, "Date,Query Volume,Success Rate,Average Latency\n", doc)
}

func TestExportCSV_RoundTrip(t *testing.T) {
	in := []model.DailyPerformance{
		{Date: "2024-05-01", QueryVolume: 8, SuccessRate: 0.875, AvgLatency: 2.25},
		{Date: "2024-05-02", QueryVolume: 2, SuccessRate: 0.5, AvgLatency: 0.75},
		{Date: "2024-05-03", QueryVolume: 10, SuccessRate: 1, AvgLatency: 3.1},
	}
	doc, err := ExportCSV(in)
	require.NoError(t, err)

	out, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Date, out[i].Date)
		assert.Equal(t, in[i].QueryVolume, out[i].QueryVolume)
		assert.InDelta(t, round(in[i].SuccessRate*100, 1)/100, out[i].SuccessRate, 1e-9)
		assert.InDelta(t, round(in[i].AvgLatency, 2), out[i].AvgLatency, 1e-9)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Day,Volume\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("Date,Query Volume,Success Rate,Average Latency\n2024-05-01,x,1.0%,1.00s\n"))
	assert.Error(t, err)
}

func TestCSVDataURI_EscapesLikeEncodeURI(t *testing.T) {
	uri := CSVDataURI("Date,Query Volume\n2024-05-01,3,50.0%\n")
	assert.Equal(t,
		"data:text/csv;charset=utf-8,Date,Query%20Volume%0A2024-05-01,3,50.0%25%0A",
		uri)
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "insight-latency-analytics-2026-10-17.csv", ExportFilename(now))
}
