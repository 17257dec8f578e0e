package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/core"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/store"
	"github.com/xiaopang/insight/internal/tui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	logPath := flag.String("log", filepath.Join(os.TempDir(), "insight-tui.log"), "日志文件，终端界面占用标准输出")
	exportDir := flag.String("export-dir", ".", "CSV 导出目录")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logger.New(logFile, logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	defer log.Sync()

	backend := client.New(cfg.Backend.BaseURL,
		client.WithTimeout(time.Duration(cfg.Backend.Timeout)*time.Second),
		client.WithLogger(log),
	)
	fetcher := core.NewFetcher(backend, core.NewCache(cfg.Dashboard.CacheTTLDuration()))
	notifier := core.NewNotifier(0, log)
	session := core.NewQuerySession(fetcher, notifier)
	uploads := core.NewUploadQueue(fetcher, notifier, core.UploadOptionsFromConfig(cfg.Upload), log)
	defer uploads.Close()

	// 活动日志可选，打不开时仅记录警告
	if cfg.Storage.Path != "" {
		if db, err := store.New(cfg.Storage.Path); err != nil {
			log.Warn("activity store unavailable", "path", cfg.Storage.Path, "error", err)
		} else {
			defer db.Close()
			session.SetRecorder(db)
			uploads.SetRecorder(db)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	m := tui.New(ctx, tui.Deps{
		Fetcher:  fetcher,
		Session:  session,
		Uploads:  uploads,
		Notifier: notifier,
		Options: core.PageOptions{
			Days: cfg.Dashboard.PerformanceDays,
			TopN: cfg.Dashboard.TopN,
			Log:  log,
		},
		ExportDir: *exportDir,
	})

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.Error("tui exited", "error", err)
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
