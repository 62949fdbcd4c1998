package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Ciras-Inc/ciras-site/packages/cache"
	"github.com/Ciras-Inc/ciras-site/packages/config"
	"github.com/Ciras-Inc/ciras-site/packages/db"
	"github.com/Ciras-Inc/ciras-site/packages/diagnosis"
	"github.com/Ciras-Inc/ciras-site/packages/fetcher"
	"github.com/Ciras-Inc/ciras-site/packages/metrics"
	"github.com/Ciras-Inc/ciras-site/packages/worker"
)

func setupLogger(cfg config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logDir := filepath.Dir(cfg.LogFile)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error(
			"Failed to create log directory", "path", logDir, "error", err,
		)
	}

	logRotator := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}

	multiWriter := io.MultiWriter(os.Stdout, logRotator)

	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}).WithAttrs([]slog.Attr{slog.String("service", "diagnosis-worker")})

	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("FATAL: Failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("--- Starting Ciras Diagnosis Worker ---")

	go metrics.ExposeMetrics(cfg.MetricsAddr)

	storage, err := db.New(ctx, cfg.DatabaseURL, db.Config{JobTimeout: cfg.JobTimeout})
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	resultCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ResultCacheTTL)
	defer resultCache.Close()

	pageFetcher := fetcher.New(cfg.FetchTimeout,
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodyBytes(cfg.MaxBodyBytes),
		fetcher.WithSelfHost(cfg.SelfHost, cfg.AssetDir),
	)

	strategy := diagnosis.StrategyBroad
	if cfg.CrawlStrategy == string(diagnosis.StrategyTargeted) {
		strategy = diagnosis.StrategyTargeted
	}
	orch := diagnosis.New(pageFetcher, strategy, diagnosis.WithConcurrency(cfg.FetchConcurrency))

	appWorker := worker.New(cfg, storage, resultCache, orch)

	ticker := time.NewTicker(cfg.SleepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutdown signal received. Exiting...")
			return
		case <-ticker.C:
			slog.Debug("Worker cycle starting")
			appWorker.ProcessJobs(ctx)
		}
	}
}
