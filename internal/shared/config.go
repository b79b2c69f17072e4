package shared

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	// HoldTTL bounds how long a checkout may sit on unpaid beds.
	HoldTTL time.Duration
	// SweepInterval drives the hold-expiry sweeper in cmd/api.
	SweepInterval time.Duration
	// CacheTTL bounds staleness of availability reads.
	CacheTTL time.Duration
	// SafetyBuffer beds are withheld per room to absorb OTA sync latency.
	SafetyBuffer int
	// PastGrace allows same-day check-ins across timezones.
	PastGrace time.Duration

	SyncWorkers   int
	FeedFetchSecs int
	FeedRateLimit int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	return Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/lapacasa?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		HoldTTL:       time.Duration(atoi("HOLD_TTL_SECONDS", 600)) * time.Second,
		SweepInterval: time.Duration(atoi("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		CacheTTL:      time.Duration(atoi("CACHE_TTL_SECONDS", 30)) * time.Second,
		SafetyBuffer:  atoi("SAFETY_BUFFER_BEDS", 0),
		PastGrace:     time.Duration(atoi("PAST_GRACE_HOURS", 24)) * time.Hour,
		SyncWorkers:   atoi("SYNC_WORKERS", 4),
		FeedFetchSecs: atoi("FEED_FETCH_TIMEOUT_SECONDS", 20),
		FeedRateLimit: atoi("FEED_RATE_LIMIT_RPS", 2),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
