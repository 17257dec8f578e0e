package view

import (
	"math"
	"strconv"

	"github.com/xiaopang/insight/internal/model"
)

// StatCard is a titled headline number.
type StatCard struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// TopItem is one row of a top list with its bar width relative to the max.
type TopItem struct {
	Name     string  `json:"name"`
	Value    int     `json:"value"`
	Display  string  `json:"display"`
	BarWidth float64 `json:"bar_width"` // percent of the largest value
}

// TopList is a ranked list with an empty-state message.
type TopList struct {
	Title        string    `json:"title"`
	Items        []TopItem `json:"items"`
	EmptyMessage string    `json:"empty_message,omitempty"`
}

// Empty reports whether the list has nothing to show.
func (l TopList) Empty() bool { return len(l.Items) == 0 }

// BuildTopList keeps at most maxItems points and computes bar widths.
func BuildTopList(title string, points []ChartPoint, maxItems int, unit func(int) string, empty string) TopList {
	if maxItems <= 0 {
		maxItems = DefaultTopN
	}
	if unit == nil {
		unit = strconv.Itoa
	}
	maxValue := 1
	for _, p := range points {
		if p.Value > maxValue {
			maxValue = p.Value
		}
	}
	if len(points) > maxItems {
		points = points[:maxItems]
	}
	items := make([]TopItem, 0, len(points))
	for _, p := range points {
		items = append(items, TopItem{
			Name:     p.Name,
			Value:    p.Value,
			Display:  unit(p.Value),
			BarWidth: round(float64(p.Value)/float64(maxValue)*100, 1),
		})
	}
	list := TopList{Title: title, Items: items}
	if len(items) == 0 {
		list.EmptyMessage = empty
	}
	return list
}

func timesUnit(noun string) func(int) string {
	return func(n int) string { return strconv.Itoa(n) + " " + noun }
}

// DashboardView is the landing page.
type DashboardView struct {
	Cards        []StatCard         `json:"cards"`
	Performance  []PerformancePoint `json:"performance"`
	TopDocuments TopList            `json:"top_documents"`
	TopQuestions TopList            `json:"top_questions"`
}

// BuildDashboard assembles the landing page. Either input may be nil.
func BuildDashboard(stats *model.QueryStats, perf []model.DailyPerformance, topN int) DashboardView {
	if stats == nil {
		stats = &model.QueryStats{}
	}
	today := 0
	if latest, ok := Latest(perf); ok {
		today = latest.QueryVolume
	}
	return DashboardView{
		Cards: []StatCard{
			{Title: "Total Queries", Value: FormatCount(stats.TotalQueries)},
			{Title: "Success Rate", Value: FormatRate(stats.SuccessRate)},
			{Title: "Avg Response Time", Value: FormatSeconds(stats.AvgResponseTime)},
			{Title: "Queries Today", Value: FormatCount(today)},
		},
		Performance: PerformancePoints(perf),
		TopDocuments: BuildTopList("Top Queried Documents", TopN(SourcePoints(stats.TopSources), topN), topN,
			timesUnit("queries"), "No documents have been queried yet"),
		TopQuestions: BuildTopList("Top Questions", TopN(QueryPoints(stats.TopQueries), topN), topN,
			timesUnit("times"), "No questions have been asked yet"),
	}
}

// SourceUsage is one row of the document usage table.
type SourceUsage struct {
	Source  string       `json:"source"`
	Type    DocumentType `json:"type"`
	Count   int          `json:"count"`
	Percent string       `json:"percent"`
}

// DailyRow is one row of the daily metrics table.
type DailyRow struct {
	Date        string `json:"date"`
	Label       string `json:"label"`
	Volume      int    `json:"volume"`
	SuccessRate string `json:"success_rate"`
	Latency     string `json:"latency"`
}

// AnalyticsView is the detailed analytics page.
type AnalyticsView struct {
	Days          int                `json:"days"`
	Cards         []StatCard         `json:"cards"`
	QueriesPerDay []DatePoint        `json:"queries_per_day"`
	Performance   []PerformancePoint `json:"performance"`
	TopSources    []ChartPoint       `json:"top_sources"`
	TopQueries    []ChartPoint       `json:"top_queries"`
	SourceUsage   []SourceUsage      `json:"source_usage"`
	DailyRows     []DailyRow         `json:"daily_rows"`
	EmptyMessages map[string]string  `json:"empty_messages,omitempty"`
}

const maxTopQueries = 10

// BuildAnalytics assembles the analytics page for a days range.
func BuildAnalytics(stats *model.QueryStats, perf []model.DailyPerformance, days, topN int) AnalyticsView {
	if stats == nil {
		stats = &model.QueryStats{}
	}
	topSources := TopN(SourcePoints(stats.TopSources), topN)
	topQueries := TopN(QueryPoints(stats.TopQueries), maxTopQueries)

	usage := make([]SourceUsage, 0, len(stats.TopSources))
	for _, s := range stats.TopSources {
		usage = append(usage, SourceUsage{
			Source:  s.Source,
			Type:    ClassifyDocument(s.Source),
			Count:   s.Count,
			Percent: FormatPercent(float64(s.Count), float64(stats.TotalQueries)),
		})
	}

	sorted := SortPerformance(perf)
	rows := make([]DailyRow, 0, len(sorted))
	for _, d := range sorted {
		rate, latency := d.SuccessRate, d.AvgLatency
		rows = append(rows, DailyRow{
			Date:        d.Date,
			Label:       FormatDate(d.Date, LongDate),
			Volume:      d.QueryVolume,
			SuccessRate: FormatRate(&rate),
			Latency:     FormatSeconds(&latency),
		})
	}

	v := AnalyticsView{
		Days: days,
		Cards: []StatCard{
			{Title: "Total Queries", Value: FormatCount(stats.TotalQueries)},
			{Title: "Success Rate", Value: FormatRate(stats.SuccessRate)},
			{Title: "Avg Response Time", Value: FormatSeconds(stats.AvgResponseTime)},
			{Title: "Documents Used", Value: FormatCount(len(topSources))},
		},
		QueriesPerDay: QueriesPerDay(stats.QueriesPerDay),
		Performance:   PerformancePoints(perf),
		TopSources:    topSources,
		TopQueries:    topQueries,
		SourceUsage:   usage,
		DailyRows:     rows,
	}

	empty := map[string]string{}
	if len(topQueries) == 0 {
		empty["top_queries"] = "No query data available"
	}
	if len(rows) == 0 {
		empty["performance"] = "No performance data available"
	}
	if len(usage) == 0 {
		empty["source_usage"] = "No document usage data available"
	}
	if len(empty) > 0 {
		v.EmptyMessages = empty
	}
	return v
}

// PieShare returns each point's share of the total as a percentage string.
func PieShare(points []ChartPoint) []string {
	total := 0
	for _, p := range points {
		total += p.Value
	}
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = FormatPercent(float64(p.Value), float64(total))
	}
	return out
}

// DocumentItem is one entry of the document library.
type DocumentItem struct {
	Name       string       `json:"name"`
	Type       DocumentType `json:"type"`
	Badge      string       `json:"badge"`
	Count      int          `json:"count"`
	CountLabel string       `json:"count_label"`
}

// DocumentsView is the document library page.
type DocumentsView struct {
	Search         string         `json:"search"`
	Documents      []DocumentItem `json:"documents"`
	Total          int            `json:"total"`
	EmptyTitle     string         `json:"empty_title,omitempty"`
	EmptyMessage   string         `json:"empty_message,omitempty"`
	CanClearSearch bool           `json:"can_clear_search"`
}

// BuildDocuments renders filtered sources. total is the unfiltered count.
func BuildDocuments(filtered []model.SourceCount, search string, total int) DocumentsView {
	docs := make([]DocumentItem, 0, len(filtered))
	for _, s := range filtered {
		t := ClassifyDocument(s.Source)
		docs = append(docs, DocumentItem{
			Name:       s.Source,
			Type:       t,
			Badge:      DocumentBadge(t),
			Count:      s.Count,
			CountLabel: "Queried " + strconv.Itoa(s.Count) + " " + Plural(s.Count, "time", "times"),
		})
	}
	v := DocumentsView{Search: search, Documents: docs, Total: total}
	if len(docs) == 0 {
		v.EmptyTitle = "No documents found"
		if search != "" {
			v.EmptyMessage = "Try a different search term"
			v.CanClearSearch = true
		} else {
			v.EmptyMessage = "Upload documents to get started"
		}
	}
	return v
}

// PageInfo describes where a paginated view sits.
type PageInfo struct {
	Page       int `json:"page"` // 0-based
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// HistoryRow is one record of the history table.
type HistoryRow struct {
	ID           string   `json:"id"`
	When         string   `json:"when"`
	Query        string   `json:"query"`
	Response     string   `json:"response"`
	ResponseTime string   `json:"response_time"`
	Sources      []string `json:"sources"`
	Success      bool     `json:"success"`
	Status       string   `json:"status"`
}

// HistoryView is one page of query history.
type HistoryView struct {
	PageInfo
	PageLabel    string       `json:"page_label"`
	HasPrev      bool         `json:"has_prev"`
	HasNext      bool         `json:"has_next"`
	Search       string       `json:"search"`
	Records      []HistoryRow `json:"records"`
	EmptyMessage string       `json:"empty_message,omitempty"`
	Selected     *HistoryRow  `json:"selected,omitempty"`
}

const previewLen = 120

// BuildHistory renders the already filtered records of one page.
func BuildHistory(records []model.QueryRecord, search string, info PageInfo, selectedID string) HistoryView {
	rows := make([]HistoryRow, 0, len(records))
	var selected *HistoryRow
	for _, r := range records {
		row := historyRow(r, previewLen)
		rows = append(rows, row)
		if selectedID != "" && r.ID == selectedID {
			full := historyRow(r, 0)
			selected = &full
		}
	}

	v := HistoryView{
		PageInfo: info,
		HasPrev:  info.Page > 0,
		HasNext:  info.Page+1 < info.TotalPages,
		Search:   search,
		Records:  rows,
		Selected: selected,
	}
	if info.TotalPages > 0 {
		v.PageLabel = "Page " + strconv.Itoa(info.Page+1) + " of " + strconv.Itoa(info.TotalPages)
	}
	if len(rows) == 0 {
		if search != "" {
			v.EmptyMessage = "No queries match your search"
		} else {
			v.EmptyMessage = "No queries have been made yet"
		}
	}
	return v
}

func historyRow(r model.QueryRecord, limit int) HistoryRow {
	rt := r.ResponseTime
	status := "Failed"
	if r.Success {
		status = "Success"
	}
	sources := r.Sources
	if sources == nil {
		sources = []string{}
	}
	return HistoryRow{
		ID:           r.ID,
		When:         FormatDate(r.Timestamp, DateTime),
		Query:        r.Query,
		Response:     preview(r.Response, limit),
		ResponseTime: FormatSeconds(&rt),
		Sources:      sources,
		Success:      r.Success,
		Status:       status,
	}
}

func preview(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// TotalPages is ceil(total/pageSize), 0 when either is not positive.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// QueryAnswerView is the answer panel of the query page.
type QueryAnswerView struct {
	Query        string   `json:"query"`
	Response     string   `json:"response"`
	Sources      []string `json:"sources"`
	ResponseTime string   `json:"response_time"`
}

// BuildQueryAnswer renders a query reply.
func BuildQueryAnswer(query string, resp *model.QueryResponse) QueryAnswerView {
	if resp == nil {
		return QueryAnswerView{Query: query, Sources: []string{}, ResponseTime: Placeholder}
	}
	rt := resp.ResponseTime
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	return QueryAnswerView{
		Query:        query,
		Response:     resp.Response,
		Sources:      sources,
		ResponseTime: FormatSeconds(&rt),
	}
}

// UploadRow is one file in the upload queue.
type UploadRow struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Type         DocumentType       `json:"type"`
	Size         string             `json:"size"`
	Status       model.UploadStatus `json:"status"`
	Progress     int                `json:"progress"`
	Error        string             `json:"error,omitempty"`
	CanUpload    bool               `json:"can_upload"`
	ShowProgress bool               `json:"show_progress"`
}

// BuildUploadRow renders one queue item.
func BuildUploadRow(item model.FileUploadItem) UploadRow {
	return UploadRow{
		ID:           item.ID,
		Name:         item.Name,
		Type:         ClassifyDocument(item.Name),
		Size:         FormatSize(item.Size),
		Status:       item.Status,
		Progress:     item.Progress,
		Error:        item.Error,
		CanUpload:    item.Status == model.UploadIdle,
		ShowProgress: item.Status == model.UploadUploading || item.Status == model.UploadSuccess,
	}
}

// BuildUploadQueue renders the whole queue in order.
func BuildUploadQueue(items []model.FileUploadItem) []UploadRow {
	rows := make([]UploadRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, BuildUploadRow(it))
	}
	return rows
}
