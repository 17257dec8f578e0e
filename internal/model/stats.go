package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SourceCount 文档被引用次数
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// QueryCount 问题出现次数
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// QueryStats 聚合统计快照，由后端计算
//
// SuccessRate and AvgResponseTime are pointers so that a field the backend
// omitted stays distinguishable from a real zero. When the backend has no
// data at all it replies with only Message set.
type QueryStats struct {
	TotalQueries    int            `json:"total_queries"`
	SuccessRate     *float64       `json:"success_rate,omitempty"`
	AvgResponseTime *float64       `json:"avg_response_time,omitempty"`
	QueriesPerDay   map[string]int `json:"queries_per_day,omitempty"`
	TopSources      []SourceCount  `json:"top_sources,omitempty"`
	TopQueries      []QueryCount   `json:"top_queries,omitempty"`
	Message         string         `json:"message,omitempty"`
}

// DailyPerformance 单日性能指标
type DailyPerformance struct {
	Date         string        `json:"date"`
	QueryVolume  int           `json:"query_volume"`
	SuccessRate  float64       `json:"success_rate"`
	AvgLatency   float64       `json:"avg_latency"` // 秒
	TopDocuments []SourceCount `json:"top_documents,omitempty"`
}

// PerformanceSeries is the /analytics/performance payload. The backend sends
// an array, or {"message": "..."} when there is nothing to report; the latter
// decodes to an empty series.
type PerformanceSeries []DailyPerformance

// UnmarshalJSON accepts both the array and the empty-data object form.
func (p *PerformanceSeries) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = PerformanceSeries{}
		return nil
	}
	switch trimmed[0] {
	case '[':
		var days []DailyPerformance
		if err := json.Unmarshal(trimmed, &days); err != nil {
			return err
		}
		*p = days
		return nil
	case '{':
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}
		*p = PerformanceSeries{}
		return nil
	default:
		return fmt.Errorf("performance series: unexpected json %q", string(trimmed[:1]))
	}
}
