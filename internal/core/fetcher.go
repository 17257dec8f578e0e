package core

import (
	"context"
	"io"
	"strconv"

	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/model"
)

// Backend is the subset of *client.Client the orchestration layer needs.
type Backend interface {
	QueryKnowledge(ctx context.Context, text string) (*model.QueryResponse, error)
	GetQueryHistory(ctx context.Context, limit, offset int) (*model.QueryHistory, error)
	GetQueryStats(ctx context.Context) (*model.QueryStats, error)
	GetPerformanceMetrics(ctx context.Context, days int) (model.PerformanceSeries, error)
	UploadFile(ctx context.Context, name string, r io.Reader, size int64, progress client.ProgressFunc) (*model.UploadResult, error)
}

var _ Backend = (*client.Client)(nil)

// Resource names used for cache keys, logs and metrics.
const (
	ResourceStats       = "stats"
	ResourcePerformance = "performance"
	ResourceHistory     = "history"
)

// Fetcher reads aggregates through the shared cache. Values it returns are
// shared between callers and must be treated as read-only.
type Fetcher struct {
	backend Backend
	cache   *Cache
}

// NewFetcher wraps backend. A nil cache gets one with memoisation disabled.
func NewFetcher(backend Backend, cache *Cache) *Fetcher {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Fetcher{backend: backend, cache: cache}
}

// Backend returns the wrapped backend for mutations.
func (f *Fetcher) Backend() Backend { return f.backend }

// Cache returns the shared cache.
func (f *Fetcher) Cache() *Cache { return f.cache }

// Stats returns the aggregate snapshot.
func (f *Fetcher) Stats(ctx context.Context) (*model.QueryStats, error) {
	return Fetch(ctx, f.cache, ResourceStats, CacheKey(ResourceStats), f.backend.GetQueryStats)
}

// Performance returns the daily series for the last days days.
func (f *Fetcher) Performance(ctx context.Context, days int) (model.PerformanceSeries, error) {
	key := CacheKey(ResourcePerformance, "days="+strconv.Itoa(days))
	return Fetch(ctx, f.cache, ResourcePerformance, key, func(ctx context.Context) (model.PerformanceSeries, error) {
		return f.backend.GetPerformanceMetrics(ctx, days)
	})
}

// History returns one history page.
func (f *Fetcher) History(ctx context.Context, limit, offset int) (*model.QueryHistory, error) {
	key := CacheKey(ResourceHistory, "limit="+strconv.Itoa(limit), "offset="+strconv.Itoa(offset))
	return Fetch(ctx, f.cache, ResourceHistory, key, func(ctx context.Context) (*model.QueryHistory, error) {
		return f.backend.GetQueryHistory(ctx, limit, offset)
	})
}

// InvalidateAggregates drops everything a query or upload can change.
func (f *Fetcher) InvalidateAggregates() {
	f.cache.Invalidate(ResourceStats, ResourcePerformance, ResourceHistory)
}
