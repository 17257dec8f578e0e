package model

// QueryRequest 提交问题的请求体
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse 知识库回答
type QueryResponse struct {
	QueryID      string   `json:"query_id"`
	Response     string   `json:"response"`
	Sources      []string `json:"sources"`
	ResponseTime float64  `json:"response_time"` // 秒
}

// QueryRecord 一条历史查询记录，获取后不可变
type QueryRecord struct {
	ID           string   `json:"id"`
	Timestamp    string   `json:"timestamp"`
	Query        string   `json:"query"`
	Response     string   `json:"response"`
	ResponseTime float64  `json:"response_time"` // 秒
	Sources      []string `json:"sources"`
	Success      bool     `json:"success"`
}

// QueryHistory 分页历史
type QueryHistory struct {
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Records []QueryRecord `json:"records"`
}
