package model

import "time"

// ActivityKind 本地记录的操作类型
type ActivityKind string

const (
	ActivityQuery  ActivityKind = "query"
	ActivityUpload ActivityKind = "upload"
)

// Activity 一次提问或上传的结果，由仪表盘本地持久化
type Activity struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Subject   string       `json:"subject"` // 问题文本或文件名
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	LatencyMs int64        `json:"latency_ms"`
	Timestamp time.Time    `json:"timestamp"`
}

// ActivityFilter 活动查询参数
type ActivityFilter struct {
	Kind    ActivityKind
	Success *bool
	Since   time.Time
	Limit   int
	Offset  int
}

// ActivitySummary 按类型汇总
type ActivitySummary struct {
	Kind         ActivityKind `json:"kind"`
	Total        int          `json:"total"`
	Succeeded    int          `json:"succeeded"`
	AvgLatencyMs float64      `json:"avg_latency_ms"`
}
