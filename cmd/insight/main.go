package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaopang/insight/internal/api"
	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
	"github.com/xiaopang/insight/internal/store"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	initConfig := flag.Bool("init", false, "写入默认配置后退出")
	flag.Parse()

	if *initConfig {
		if err := config.Save(*configPath, config.Default()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default config written to %s\n", *configPath)
		return
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	defer log.Sync()
	log.Info("config loaded", "path", *configPath, "backend", cfg.Backend.BaseURL)

	metrics.Init()

	// 后端客户端与共享缓存
	backend := client.New(cfg.Backend.BaseURL,
		client.WithTimeout(time.Duration(cfg.Backend.Timeout)*time.Second),
		client.WithLogger(log),
	)
	fetcher := core.NewFetcher(backend, core.NewCache(cfg.Dashboard.CacheTTLDuration()))

	notifier := core.NewNotifier(0, log)
	session := core.NewQuerySession(fetcher, notifier)
	uploads := core.NewUploadQueue(fetcher, notifier, core.UploadOptionsFromConfig(cfg.Upload), log)

	// 后端可达性探测
	monitor := core.NewBackendMonitor(cfg.Backend.BaseURL, core.StatsProbe(backend), cfg.Monitor, log)
	monitor.Start()
	if cfg.Monitor.Enabled {
		log.Info("backend monitor started", "interval_s", cfg.Monitor.Interval)
	}

	h := api.NewHandler(cfg, fetcher, session, uploads, notifier, monitor, log)

	// 活动日志可选，storage.path 为空时不持久化
	var retention func(context.Context)
	if cfg.Storage.Path != "" {
		db, err := store.New(cfg.Storage.Path)
		if err != nil {
			log.Error("failed to init activity store", "path", cfg.Storage.Path, "error", err)
			_ = log.Sync()
			os.Exit(1)
		}
		defer db.Close()
		session.SetRecorder(db)
		uploads.SetRecorder(db)
		h.SetActivityLog(db)
		retention = core.RetentionTask(db, cfg.Storage.RetentionDays, log)
		log.Info("activity store ready", "path", cfg.Storage.Path)
	}

	r := api.SetupRouter(cfg, h, log)

	// 使用 http.Server 以支持 Graceful Shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 定期清理限流窗口与过期活动
	go core.Every(ctx, time.Hour, func(ctx context.Context) {
		h.CleanupLimits()
		if retention != nil {
			retention(ctx)
		}
	})

	srvErr := make(chan error, 1)
	go func() {
		log.Info("insight dashboard starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// 等待信号或服务器错误
	select {
	case err := <-srvErr:
		if err != nil {
			log.Error("failed to start server", "error", err)
			monitor.Stop()
			uploads.Close()
			_ = log.Sync()
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, draining connections")
	}

	// 给在途请求 15 秒的时间完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", "error", err)
	}
	monitor.Stop()
	uploads.Close()
	log.Info("server stopped gracefully")
}
