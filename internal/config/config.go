package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvAPIURL   = "INSIGHT_API_URL"
	EnvHost     = "INSIGHT_HOST"
	EnvPort     = "INSIGHT_PORT"
	EnvLogLevel = "INSIGHT_LOG_LEVEL"
)

// DefaultBackendURL is used when neither the file nor the environment name a backend.
const DefaultBackendURL = "http://localhost:8000"

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Upload    UploadConfig    `yaml:"upload"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Limits    LimitsConfig    `yaml:"limits"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig 仪表盘 HTTP 服务配置
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BackendConfig 知识库后端配置
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // 秒
}

// DashboardConfig 视图参数。历史与文档列表固定每页 10 条，不可配置。
type DashboardConfig struct {
	PerformanceDays int  `yaml:"performance_days"`
	TopN            int  `yaml:"top_n"`
	CacheTTL        *int `yaml:"cache_ttl"` // 秒，显式 0 关闭缓存，缺省 30
}

// DefaultCacheTTL 未配置 cache_ttl 时的缓存时长 (秒)
const DefaultCacheTTL = 30

// CacheTTLDuration returns the configured cache lifetime; zero disables caching.
func (d DashboardConfig) CacheTTLDuration() time.Duration {
	if d.CacheTTL == nil || *d.CacheTTL < 0 {
		return DefaultCacheTTL * time.Second
	}
	return time.Duration(*d.CacheTTL) * time.Second
}

// UploadConfig 上传进度模拟参数
type UploadConfig struct {
	ProgressInterval int `yaml:"progress_interval"` // 毫秒
	ProgressStep     int `yaml:"progress_step"`
	ProgressCap      int `yaml:"progress_cap"`
	KeepFinished     int `yaml:"keep_finished"` // 保留的已结束条目数
}

// MonitorConfig 后端可达性探测
type MonitorConfig struct {
	Enabled          bool `yaml:"enabled"`
	Interval         int  `yaml:"interval"` // 秒
	Timeout          int  `yaml:"timeout"`  // 秒
	FailureThreshold int  `yaml:"failure_threshold"`
}

// LimitsConfig 写操作限流，0 表示不限制
type LimitsConfig struct {
	QueryRPM         int `yaml:"query_rpm"`         // 每客户端每分钟提问数
	UploadConcurrent int `yaml:"upload_concurrent"` // 每客户端并发上传数
}

// StorageConfig 本地活动日志 (SQLite)，Path 为空时不启用
type StorageConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load 从文件加载配置。文件不存在时使用默认值。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// .env 是可选的
	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	setDefaults(cfg)

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		cfg.Server.Host = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		cfg.Server.Port = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18090
	}
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = DefaultBackendURL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 60
	}
	if cfg.Dashboard.PerformanceDays == 0 {
		cfg.Dashboard.PerformanceDays = 7
	}
	if cfg.Dashboard.TopN == 0 {
		cfg.Dashboard.TopN = 5
	}
	if cfg.Dashboard.CacheTTL == nil {
		ttl := DefaultCacheTTL
		cfg.Dashboard.CacheTTL = &ttl
	}
	if cfg.Upload.ProgressInterval == 0 {
		cfg.Upload.ProgressInterval = 500
	}
	if cfg.Upload.ProgressStep == 0 {
		cfg.Upload.ProgressStep = 10
	}
	if cfg.Upload.ProgressCap == 0 {
		cfg.Upload.ProgressCap = 90
	}
	if cfg.Upload.KeepFinished == 0 {
		cfg.Upload.KeepFinished = 50
	}
	if cfg.Monitor.Interval == 0 {
		cfg.Monitor.Interval = 60
	}
	if cfg.Monitor.Timeout == 0 {
		cfg.Monitor.Timeout = 5
	}
	if cfg.Monitor.FailureThreshold == 0 {
		cfg.Monitor.FailureThreshold = 2
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

// Save 保存配置到文件
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
