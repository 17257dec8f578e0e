package core

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/model"
)

// fakeBackend answers from function fields and counts calls.
type fakeBackend struct {
	query   func(ctx context.Context, text string) (*model.QueryResponse, error)
	history func(ctx context.Context, limit, offset int) (*model.QueryHistory, error)
	stats   func(ctx context.Context) (*model.QueryStats, error)
	perf    func(ctx context.Context, days int) (model.PerformanceSeries, error)
	upload  func(ctx context.Context, name string, r io.Reader, size int64, progress client.ProgressFunc) (*model.UploadResult, error)

	queryCalls   atomic.Int32
	historyCalls atomic.Int32
	statsCalls   atomic.Int32
	perfCalls    atomic.Int32
	uploadCalls  atomic.Int32
}

func (f *fakeBackend) QueryKnowledge(ctx context.Context, text string) (*model.QueryResponse, error) {
	f.queryCalls.Add(1)
	if f.query == nil {
		return &model.QueryResponse{QueryID: "q1", Response: "answer to " + text}, nil
	}
	return f.query(ctx, text)
}

func (f *fakeBackend) GetQueryHistory(ctx context.Context, limit, offset int) (*model.QueryHistory, error) {
	f.historyCalls.Add(1)
	if f.history == nil {
		return &model.QueryHistory{Limit: limit, Offset: offset, Records: []model.QueryRecord{}}, nil
	}
	return f.history(ctx, limit, offset)
}

func (f *fakeBackend) GetQueryStats(ctx context.Context) (*model.QueryStats, error) {
	f.statsCalls.Add(1)
	if f.stats == nil {
		return &model.QueryStats{}, nil
	}
	return f.stats(ctx)
}

func (f *fakeBackend) GetPerformanceMetrics(ctx context.Context, days int) (model.PerformanceSeries, error) {
	f.perfCalls.Add(1)
	if f.perf == nil {
		return model.PerformanceSeries{}, nil
	}
	return f.perf(ctx, days)
}

func (f *fakeBackend) UploadFile(ctx context.Context, name string, r io.Reader, size int64, progress client.ProgressFunc) (*model.UploadResult, error) {
	f.uploadCalls.Add(1)
	if f.upload == nil {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return &model.UploadResult{Message: "ok"}, nil
	}
	return f.upload(ctx, name, r, size, progress)
}

func testLogger() *logger.Logger { return logger.Nop() }

func f64(v float64) *float64 { return &v }
