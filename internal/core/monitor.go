package core

import (
	"context"
	"sync"
	"time"

	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
)

// BackendState is the reachability verdict of the monitor.
type BackendState string

const (
	BackendUnknown BackendState = "unknown"
	BackendUp      BackendState = "up"
	BackendDown    BackendState = "down"
)

// BackendStatus 后端探测状态
type BackendStatus struct {
	BaseURL         string        `json:"base_url"`
	State           BackendState  `json:"state"`
	LastCheck       time.Time     `json:"last_check,omitempty"`
	Latency         time.Duration `json:"latency"`
	ConsecutiveFail int           `json:"consecutive_fail"`
	ErrorCount      int           `json:"error_count"`
	LastError       string        `json:"last_error,omitempty"`
}

// ProbeFunc checks the backend once.
type ProbeFunc func(ctx context.Context) error

// StatsProbe probes through the stats endpoint, the cheapest read.
func StatsProbe(b Backend) ProbeFunc {
	return func(ctx context.Context) error {
		_, err := b.GetQueryStats(ctx)
		return err
	}
}

// BackendMonitor 周期性探测后端可达性
type BackendMonitor struct {
	probe ProbeFunc
	cfg   config.MonitorConfig
	log   *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	status BackendStatus
}

// NewBackendMonitor 创建探测器
func NewBackendMonitor(baseURL string, probe ProbeFunc, cfg config.MonitorConfig, log *logger.Logger) *BackendMonitor {
	if log == nil {
		log = logger.Default()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &BackendMonitor{
		probe:  probe,
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		status: BackendStatus{BaseURL: baseURL, State: BackendUnknown},
	}
}

// Start 启动探测循环
func (m *BackendMonitor) Start() {
	if !m.cfg.Enabled {
		return
	}
	if m.ctx.Err() != nil {
		m.ctx, m.cancel = context.WithCancel(context.Background())
	}
	m.wg.Add(1)
	go m.run()
}

// Stop 停止探测
func (m *BackendMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

func (m *BackendMonitor) run() {
	defer m.wg.Done()

	// 启动时立即检查一次
	m.Check(m.ctx)

	interval := time.Duration(m.cfg.Interval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.Check(m.ctx)
		}
	}
}

// Check probes once and returns the updated status.
func (m *BackendMonitor) Check(ctx context.Context) BackendStatus {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}

	start := time.Now()
	err := m.probe(ctx)
	latency := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.LastCheck = time.Now()
	m.status.Latency = latency

	if err != nil {
		m.status.ConsecutiveFail++
		m.status.ErrorCount++
		m.status.LastError = err.Error()
		m.log.Warn("backend probe failed", "url", m.status.BaseURL, "error", err, "consecutive", m.status.ConsecutiveFail)
		if m.status.ConsecutiveFail >= m.cfg.FailureThreshold {
			m.status.State = BackendDown
			metrics.BackendUp.Set(0)
		}
	} else {
		m.status.ConsecutiveFail = 0
		m.status.LastError = ""
		m.status.State = BackendUp
		metrics.BackendUp.Set(1)
	}
	return m.status
}

// Status returns the last known status.
func (m *BackendMonitor) Status() BackendStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
