package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaopang/insight/internal/model"
)

func cardValue(t *testing.T, cards []StatCard, title string) string {
	t.Helper()
	for _, c := range cards {
		if c.Title == title {
			return c.Value
		}
	}
	t.Fatalf("card %q not found", title)
	return ""
}

func TestClassifyDocument(t *testing.T) {
	cases := map[string]DocumentType{
		"report.PDF":        DocPDF,
		"data.csv":          DocCSV,
		"notes.TxT":         DocText,
		"README.md":         DocMD,
		"archive.tar.gz":    DocOther,
		"Makefile":          DocOther,
		"":                  DocOther,
		"dir.pdf/readme":    DocOther,
		"trailing.dot.":     DocOther,
		"/abs/path/plan.md": DocMD,
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifyDocument(name), name)
	}
	assert.Equal(t, "Document", DocumentBadge(DocOther))
	assert.Equal(t, "PDF", DocumentBadge(ClassifyDocument("x.pdf")))
}

func TestAccepted(t *testing.T) {
	assert.True(t, Accepted("Guide.MD"))
	assert.True(t, Accepted("data.csv"))
	assert.False(t, Accepted("image.png"))
	assert.False(t, Accepted("README"))
}

func TestBuildDashboard_ZeroAndUndefinedStats(t *testing.T) {
	v := BuildDashboard(&model.QueryStats{TotalQueries: 0}, nil, 5)

	assert.Equal(t, "0", cardValue(t, v.Cards, "Total Queries"))
	assert.Equal(t, "--", cardValue(t, v.Cards, "Success Rate"))
	assert.Equal(t, "--", cardValue(t, v.Cards, "Avg Response Time"))
	assert.Equal(t, "0", cardValue(t, v.Cards, "Queries Today"))
	assert.True(t, v.TopDocuments.Empty())
	assert.Equal(t, "No documents have been queried yet", v.TopDocuments.EmptyMessage)
	assert.Equal(t, "No questions have been asked yet", v.TopQuestions.EmptyMessage)

	nilStats := BuildDashboard(nil, nil, 5)
	assert.Equal(t, v.Cards, nilStats.Cards)
}

func TestBuildDashboard_Populated(t *testing.T) {
	stats := &model.QueryStats{
		TotalQueries:    12,
		SuccessRate:     f64(0.9166),
		AvgResponseTime: f64(1.456),
		TopSources:      []model.SourceCount{{Source: "a.pdf", Count: 8}, {Source: "b.md", Count: 4}},
		TopQueries:      []model.QueryCount{{Query: "what?", Count: 2}},
	}
	perf := []model.DailyPerformance{
		{Date: "2024-05-07", QueryVolume: 6},
		{Date: "2024-05-06", QueryVolume: 3},
	}
	v := BuildDashboard(stats, perf, 5)

	assert.Equal(t, "12", cardValue(t, v.Cards, "Total Queries"))
	assert.Equal(t, "91.7%", cardValue(t, v.Cards, "Success Rate"))
	assert.Equal(t, "1.46s", cardValue(t, v.Cards, "Avg Response Time"))
	assert.Equal(t, "6", cardValue(t, v.Cards, "Queries Today"))
	require.Len(t, v.TopDocuments.Items, 2)
	assert.Equal(t, "8 queries", v.TopDocuments.Items[0].Display)
	assert.InDelta(t, 100, v.TopDocuments.Items[0].BarWidth, 1e-9)
	assert.InDelta(t, 50, v.TopDocuments.Items[1].BarWidth, 1e-9)
	assert.Equal(t, "2 times", v.TopQuestions.Items[0].Display)
	assert.Equal(t, "2024-05-06", v.Performance[0].Date)
}

func TestBuildAnalytics(t *testing.T) {
	stats := &model.QueryStats{
		TotalQueries:  10,
		SuccessRate:   f64(0.5),
		QueriesPerDay: map[string]int{"2024-05-02": 6, "2024-05-01": 4},
		TopSources: []model.SourceCount{
			{Source: "a.pdf", Count: 5}, {Source: "b.csv", Count: 3}, {Source: "c.txt", Count: 2},
			{Source: "d.md", Count: 1}, {Source: "e", Count: 1}, {Source: "f.pdf", Count: 1},
		},
	}
	v := BuildAnalytics(stats, nil, 30, 5)

	assert.Equal(t, 30, v.Days)
	assert.Equal(t, "5", cardValue(t, v.Cards, "Documents Used"))
	assert.Len(t, v.TopSources, 5)
	require.Len(t, v.SourceUsage, 6)
	assert.Equal(t, "50.0%", v.SourceUsage[0].Percent)
	assert.Equal(t, DocCSV, v.SourceUsage[1].Type)
	assert.Equal(t, "2024-05-01", v.QueriesPerDay[0].Date)
	assert.Equal(t, "No performance data available", v.EmptyMessages["performance"])
	assert.Equal(t, "No query data available", v.EmptyMessages["top_queries"])
}

func TestBuildAnalytics_ZeroTotalUsesPlaceholder(t *testing.T) {
	stats := &model.QueryStats{TopSources: []model.SourceCount{{Source: "a.pdf", Count: 2}}}
	v := BuildAnalytics(stats, nil, 7, 5)
	assert.Equal(t, Placeholder, v.SourceUsage[0].Percent)
}

func TestPieShare(t *testing.T) {
	assert.Equal(t, []string{"75.0%", "25.0%"}, PieShare([]ChartPoint{{"a", 3}, {"b", 1}}))
	assert.Equal(t, []string{Placeholder}, PieShare([]ChartPoint{{"a", 0}}))
}

func TestBuildDocuments_EmptyStates(t *testing.T) {
	v := BuildDocuments(nil, "zzz", 4)
	assert.Empty(t, v.Documents)
	assert.True(t, v.CanClearSearch)
	assert.Equal(t, "Try a different search term", v.EmptyMessage)

	v = BuildDocuments(nil, "", 0)
	assert.False(t, v.CanClearSearch)
	assert.Equal(t, "Upload documents to get started", v.EmptyMessage)

	v = BuildDocuments([]model.SourceCount{{Source: "x.PDF", Count: 1}, {Source: "y", Count: 3}}, "", 2)
	require.Len(t, v.Documents, 2)
	assert.Equal(t, "Queried 1 time", v.Documents[0].CountLabel)
	assert.Equal(t, "Queried 3 times", v.Documents[1].CountLabel)
	assert.Equal(t, "PDF", v.Documents[0].Badge)
	assert.Empty(t, v.EmptyMessage)
}

func TestBuildHistory(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'é'
	}
	records := []model.QueryRecord{
		{ID: "r1", Timestamp: "2024-05-01T10:30:00", Query: "q1", Response: string(long), ResponseTime: 0.4, Success: true},
		{ID: "r2", Timestamp: "not a date", Query: "q2", Response: "short", Success: false},
	}
	info := PageInfo{Page: 1, PageSize: 10, Total: 15, TotalPages: TotalPages(15, 10)}
	v := BuildHistory(records, "", info, "r1")

	assert.Equal(t, "Page 2 of 2", v.PageLabel)
	assert.True(t, v.HasPrev)
	assert.False(t, v.HasNext)
	require.Len(t, v.Records, 2)
	assert.Equal(t, "May 01, 2024 10:30", v.Records[0].When)
	assert.Equal(t, "not a date", v.Records[1].When)
	assert.Equal(t, previewLen+1, len([]rune(v.Records[0].Response)))
	assert.Equal(t, "Failed", v.Records[1].Status)
	assert.Equal(t, "0.40s", v.Records[0].ResponseTime)
	require.NotNil(t, v.Selected)
	assert.Equal(t, string(long), v.Selected.Response)

	empty := BuildHistory(nil, "nothing", PageInfo{PageSize: 10}, "")
	assert.Equal(t, "No queries match your search", empty.EmptyMessage)
	assert.Empty(t, empty.PageLabel)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 2, TotalPages(15, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestBuildUploadQueue(t *testing.T) {
	rows := BuildUploadQueue([]model.FileUploadItem{
		{ID: "1", Name: "report.PDF", Size: 2048, Status: model.UploadIdle},
		{ID: "2", Name: "notes.txt", Status: model.UploadUploading, Progress: 40},
		{ID: "3", Name: "bad.exe", Status: model.UploadError, Error: "boom"},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, DocPDF, rows[0].Type)
	assert.Equal(t, "2.0 KB", rows[0].Size)
	assert.True(t, rows[0].CanUpload)
	assert.False(t, rows[0].ShowProgress)
	assert.True(t, rows[1].ShowProgress)
	assert.False(t, rows[2].ShowProgress)
	assert.Equal(t, "boom", rows[2].Error)
}

func TestBuildQueryAnswer(t *testing.T) {
	v := BuildQueryAnswer("q", &model.QueryResponse{Response: "a", ResponseTime: 2})
	assert.Equal(t, "2.00s", v.ResponseTime)
	assert.NotNil(t, v.Sources)

	v = BuildQueryAnswer("q", nil)
	assert.Equal(t, Placeholder, v.ResponseTime)
}
