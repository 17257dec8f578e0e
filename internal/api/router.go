package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handler, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if log == nil {
		log = logger.Default()
	}

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	queryLimit := LimitMiddleware(h.queryLimiter, core.Limits{RPM: cfg.Limits.QueryRPM})
	uploadLimit := LimitMiddleware(h.uploadLimiter, core.Limits{Concurrent: cfg.Limits.UploadConcurrent})

	api := r.Group("/api")
	{
		api.GET("/status", h.GetStatus)
		api.GET("/notifications", h.GetNotifications)

		api.GET("/dashboard", h.GetDashboard)
		api.GET("/analytics", h.GetAnalytics)
		api.GET("/analytics/export", h.ExportAnalytics)
		api.GET("/history", h.GetHistory)
		api.GET("/documents", h.GetDocuments)

		api.POST("/query", queryLimit, h.PostQuery)
		api.POST("/upload", uploadLimit, h.PostUpload)
		api.GET("/uploads", h.GetUploads)
		api.DELETE("/uploads/:id", h.DeleteUpload)
		api.GET("/activity", h.GetActivity)
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 健康检查端点
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(func(c *gin.Context) {
		abortError(c, http.StatusNotFound, "not found", "not_found_error", "not_found")
	})

	return r
}
