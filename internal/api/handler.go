package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/model"
	"github.com/xiaopang/insight/internal/view"
)

// Handler serves the dashboard view models over HTTP. Each read builds a
// fresh page controller; the fetch cache is what they share.
type Handler struct {
	fetcher  *core.Fetcher
	session  *core.QuerySession
	uploads  *core.UploadQueue
	notifier *core.Notifier
	monitor  *core.BackendMonitor
	activity ActivityLog
	opts     core.PageOptions

	queryLimiter  *core.RateLimiter
	uploadLimiter *core.RateLimiter

	now func() time.Time
	log *logger.Logger
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, fetcher *core.Fetcher, session *core.QuerySession, uploads *core.UploadQueue,
	notifier *core.Notifier, monitor *core.BackendMonitor, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	return &Handler{
		fetcher:  fetcher,
		session:  session,
		uploads:  uploads,
		notifier: notifier,
		monitor:  monitor,
		opts: core.PageOptions{
			Days: cfg.Dashboard.PerformanceDays,
			TopN: cfg.Dashboard.TopN,
			Log:  log,
		},
		queryLimiter:  core.NewRateLimiter(),
		uploadLimiter: core.NewRateLimiter(),
		now:           time.Now,
		log:           log,
	}
}

// ActivityLog is the persisted record of queries and uploads.
type ActivityLog interface {
	ListActivity(model.ActivityFilter) ([]model.Activity, error)
	Summary(since time.Time) ([]model.ActivitySummary, error)
}

// SetActivityLog enables GET /api/activity.
func (h *Handler) SetActivityLog(a ActivityLog) {
	h.activity = a
}

// CleanupLimits drops idle rate limit windows.
func (h *Handler) CleanupLimits() {
	h.queryLimiter.Cleanup()
	h.uploadLimiter.Cleanup()
}

// GetStatus 后端可达性与客户端状态
func (h *Handler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"uploads":       view.BuildUploadQueue(h.uploads.Items()),
		"notifications": h.notifier.Recent(),
	}
	if h.monitor != nil {
		resp["backend"] = h.monitor.Status()
	}
	c.JSON(http.StatusOK, resp)
}

// GetNotifications returns and clears pending notifications.
func (h *Handler) GetNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.notifier.Drain()})
}

// GetDashboard 仪表盘
func (h *Handler) GetDashboard(c *gin.Context) {
	page := core.NewDashboardPage(h.fetcher, h.opts)
	if err := page.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page.View()})
}

func (h *Handler) analyticsPage(c *gin.Context) (*core.AnalyticsPage, bool) {
	page := core.NewAnalyticsPage(h.fetcher, h.opts)
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "days must be an integer", "invalid_range")
			return nil, false
		}
		if err := page.SetDays(days); err != nil {
			writeError(c, err)
			return nil, false
		}
	}
	if err := page.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return nil, false
	}
	return page, true
}

// GetAnalytics 详细分析
func (h *Handler) GetAnalytics(c *gin.Context) {
	page, ok := h.analyticsPage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page.View(), "time_ranges": core.TimeRanges})
}

// ExportAnalytics 导出 CSV
func (h *Handler) ExportAnalytics(c *gin.Context) {
	page, ok := h.analyticsPage(c)
	if !ok {
		return
	}
	doc, name, err := page.Export(h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(doc))
}

// GetHistory 查询历史，page 从 0 开始
func (h *Handler) GetHistory(c *gin.Context) {
	page := core.NewHistoryPage(h.fetcher, h.opts)
	page.SetSearch(c.Query("search"))
	n, ok := intParam(c, "page", 0)
	if !ok {
		return
	}
	page.SetPage(n)
	if err := page.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	if id := c.Query("selected"); id != "" {
		page.Select(id)
	}
	c.JSON(http.StatusOK, gin.H{"data": page.View()})
}

// GetDocuments 文档库
func (h *Handler) GetDocuments(c *gin.Context) {
	page := core.NewDocumentsPage(h.fetcher, h.opts)
	page.SetSearch(c.Query("search"))
	if err := page.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": page.View()})
}

// PostQuery 提问
func (h *Handler) PostQuery(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request: "+err.Error(), "invalid_json")
		return
	}
	resp, err := h.session.Submit(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view.BuildQueryAnswer(req.Query, resp)})
}

// PostUpload 上传文档，等待后端确认后返回
func (h *Handler) PostUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required", "missing_file")
		return
	}
	if !view.Accepted(fh.Filename) {
		badRequest(c, "unsupported file type: "+fh.Filename, "unsupported_file_type")
		return
	}

	item := h.uploads.Add(fh.Filename, fh.Size, openHeader(fh))
	done, err := h.uploads.Upload(c.Request.Context(), item.ID)
	if err != nil {
		status, typ, code := classify(err)
		c.AbortWithStatusJSON(status, gin.H{
			"error": model.ErrorDetail{Message: err.Error(), Type: typ, Code: code},
			"data":  view.BuildUploadRow(done),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": view.BuildUploadRow(done)})
}

// GetUploads 上传队列
func (h *Handler) GetUploads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": view.BuildUploadQueue(h.uploads.Items())})
}

// DeleteUpload 移除队列中的条目，进行中的上传会被取消
func (h *Handler) DeleteUpload(c *gin.Context) {
	if !h.uploads.Remove(c.Param("id")) {
		writeError(c, core.ErrUploadNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetActivity 本地活动日志，days 限定汇总与列表的时间范围
func (h *Handler) GetActivity(c *gin.Context) {
	if h.activity == nil {
		abortError(c, http.StatusNotFound, "activity log is disabled", "not_found_error", "activity_disabled")
		return
	}

	filter := model.ActivityFilter{Kind: model.ActivityKind(c.Query("kind"))}
	switch filter.Kind {
	case "", model.ActivityQuery, model.ActivityUpload:
	default:
		badRequest(c, "kind must be query or upload", "invalid_kind")
		return
	}
	var ok bool
	if filter.Limit, ok = intParam(c, "limit", 50); !ok {
		return
	}
	if filter.Offset, ok = intParam(c, "offset", 0); !ok {
		return
	}
	days, ok := intParam(c, "days", 7)
	if !ok {
		return
	}
	if days > 0 {
		filter.Since = h.now().AddDate(0, 0, -days)
	}

	rows, err := h.activity.ListActivity(filter)
	if err != nil {
		h.log.Error("list activity", "error", err)
		writeError(c, err)
		return
	}
	summary, err := h.activity.Summary(filter.Since)
	if err != nil {
		h.log.Error("summarise activity", "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "summary": summary})
}

func intParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, name+" must be a non-negative integer", "invalid_"+name)
		return 0, false
	}
	return n, true
}

func openHeader(fh *multipart.FileHeader) core.OpenFunc {
	return func() (io.ReadCloser, error) { return fh.Open() }
}
