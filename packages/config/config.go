// Package config
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	CallbackURL string

	BatchSize     int
	MaxWorkers    int
	SleepInterval time.Duration
	JobTimeout    time.Duration

	FetchTimeout     time.Duration
	FetchConcurrency int
	CrawlStrategy    string
	MaxBodyBytes     int64
	UserAgent        string

	// Diagnoses of our own marketing site are served from local assets
	// instead of the network.
	SelfHost string
	AssetDir string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ResultCacheTTL time.Duration

	MetricsAddr string
	LogFile     string
	LogLevel    string
}

func Load() (Config, error) {
	cfg := Config{}
	var missingVars []string

	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		missingVars = append(missingVars, "DATABASE_URL")
	}
	if len(missingVars) > 0 {
		return cfg, fmt.Errorf("missing required environment variables: %s", strings.Join(missingVars, ", "))
	}

	cfg.CallbackURL = getEnv("CALLBACK_URL", "")

	var err error
	cfg.BatchSize, err = strconv.Atoi(getEnv("BATCH_SIZE", "20"))
	if err != nil {
		slog.Warn("Invalid BATCH_SIZE", "value", getEnv("BATCH_SIZE", "20"), "error", err)
		cfg.BatchSize = 20
	}
	cfg.MaxWorkers, _ = strconv.Atoi(getEnv("MAX_WORKERS", "5"))
	cfg.SleepInterval, _ = time.ParseDuration(getEnv("SLEEP_INTERVAL", "5s"))
	cfg.JobTimeout, _ = time.ParseDuration(getEnv("JOB_TIMEOUT", "10m"))

	cfg.FetchTimeout, _ = time.ParseDuration(getEnv("FETCH_TIMEOUT", "15s"))
	cfg.FetchConcurrency, _ = strconv.Atoi(getEnv("FETCH_CONCURRENCY", "9"))
	cfg.CrawlStrategy = getEnv("CRAWL_STRATEGY", "broad")
	cfg.MaxBodyBytes, _ = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "500000"), 10, 64)
	cfg.UserAgent = getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	cfg.SelfHost = getEnv("SELF_HOST", "")
	cfg.AssetDir = getEnv("ASSET_DIR", "public")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, _ = strconv.Atoi(getEnv("REDIS_DB", "0"))
	cfg.ResultCacheTTL, _ = time.ParseDuration(getEnv("RESULT_CACHE_TTL", "1h"))

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "0.0.0.0:9091")
	cfg.LogFile = getEnv("LOG_FILE", "logs/diagnosis.log")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
