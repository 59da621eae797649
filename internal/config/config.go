/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	MetricsBind   string
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string
	MediaRoot     string

	// Stations served by this process
	StationIDs      []string
	StationTimezone string

	// Playout timing
	CrossfadeDuration time.Duration
	CrossfadeStep     time.Duration
	SettleDelay       time.Duration
	EjectGrace        time.Duration
	ProgressInterval  time.Duration
	WatchdogInterval  time.Duration
	LibraryRefresh    time.Duration

	// Queue persistence
	QueueDebounce     time.Duration
	QueueRetryBackoff time.Duration
	QueueWritesPerSec float64
	QueueWriteBurst   int

	// Catalog cache (Redis)
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Event relay
	NATSURL string

	// S3 media storage
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string
	S3UsePathStyle    bool

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LegacyEnvWarnings []string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnvAny([]string{"RADIOPRO_ENV", "APP_ENV"}, "development"),
		HTTPBind:      getEnvAny([]string{"RADIOPRO_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:      getEnvIntAny([]string{"RADIOPRO_HTTP_PORT", "PORT"}, 8080),
		MetricsBind:   getEnvAny([]string{"RADIOPRO_METRICS_BIND"}, "127.0.0.1:9000"),
		DBBackend:     DatabaseBackend(getEnvAny([]string{"RADIOPRO_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:         getEnvAny([]string{"RADIOPRO_DB_DSN", "DATABASE_URL"}, ""),
		JWTSigningKey: getEnvAny([]string{"RADIOPRO_JWT_SIGNING_KEY"}, ""),
		MediaRoot:     getEnvAny([]string{"RADIOPRO_MEDIA_ROOT"}, "./media"),

		StationIDs:      splitList(getEnvAny([]string{"RADIOPRO_STATIONS", "RADIOPRO_STATION_ID"}, "main")),
		StationTimezone: getEnvAny([]string{"RADIOPRO_STATION_TIMEZONE", "TZ"}, "Local"),

		CrossfadeDuration: getEnvDurationMSAny([]string{"RADIOPRO_CROSSFADE_MS"}, 3*time.Second),
		CrossfadeStep:     getEnvDurationMSAny([]string{"RADIOPRO_CROSSFADE_STEP_MS"}, 50*time.Millisecond),
		SettleDelay:       getEnvDurationMSAny([]string{"RADIOPRO_SETTLE_MS"}, time.Second),
		EjectGrace:        getEnvDurationMSAny([]string{"RADIOPRO_EJECT_GRACE_MS"}, 2*time.Second),
		ProgressInterval:  getEnvDurationMSAny([]string{"RADIOPRO_PROGRESS_INTERVAL_MS"}, time.Second),
		WatchdogInterval:  getEnvDurationMSAny([]string{"RADIOPRO_WATCHDOG_INTERVAL_MS"}, time.Second),
		LibraryRefresh:    time.Duration(getEnvIntAny([]string{"RADIOPRO_LIBRARY_REFRESH_MINUTES"}, 5)) * time.Minute,

		QueueDebounce:     getEnvDurationMSAny([]string{"RADIOPRO_QUEUE_DEBOUNCE_MS"}, time.Second),
		QueueRetryBackoff: getEnvDurationMSAny([]string{"RADIOPRO_QUEUE_RETRY_MS"}, 3*time.Second),
		QueueWritesPerSec: getEnvFloatAny([]string{"RADIOPRO_QUEUE_WRITES_PER_SEC"}, 1),
		QueueWriteBurst:   getEnvIntAny([]string{"RADIOPRO_QUEUE_WRITE_BURST"}, 2),

		CacheEnabled:  getEnvBoolAny([]string{"RADIOPRO_CACHE_ENABLED"}, false),
		RedisAddr:     getEnvAny([]string{"RADIOPRO_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"RADIOPRO_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"RADIOPRO_REDIS_DB"}, 0),

		NATSURL: getEnvAny([]string{"RADIOPRO_NATS_URL", "NATS_URL"}, ""),

		S3AccessKeyID:     getEnvAny([]string{"RADIOPRO_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"RADIOPRO_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"RADIOPRO_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"RADIOPRO_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"RADIOPRO_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"RADIOPRO_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		TracingEnabled:    getEnvBoolAny([]string{"RADIOPRO_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"RADIOPRO_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"RADIOPRO_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		if cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("RADIOPRO_DB_DSN or DATABASE_URL must be provided")
		}
		cfg.DBDSN = "radiopro.db"
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("RADIOPRO_JWT_SIGNING_KEY must be provided")
	}

	if len(cfg.StationIDs) == 0 {
		return nil, fmt.Errorf("RADIOPRO_STATIONS must name at least one station")
	}

	if cfg.CrossfadeStep <= 0 || cfg.CrossfadeStep > cfg.CrossfadeDuration {
		return nil, fmt.Errorf("crossfade step %s must be positive and not exceed crossfade duration %s", cfg.CrossfadeStep, cfg.CrossfadeDuration)
	}

	if cfg.QueueWritesPerSec <= 0 {
		return nil, fmt.Errorf("RADIOPRO_QUEUE_WRITES_PER_SEC must be positive")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 16 {
		return nil, fmt.Errorf("RADIOPRO_JWT_SIGNING_KEY must be at least 16 characters in production")
	}

	if _, err := time.LoadLocation(cfg.StationTimezone); err != nil {
		return nil, fmt.Errorf("invalid station timezone %q: %w", cfg.StationTimezone, err)
	}

	cfg.LegacyEnvWarnings = detectLegacyEnvWarnings()

	return cfg, nil
}

// Location returns the station timezone, falling back to local time.
func (c *Config) Location() *time.Location {
	if c == nil {
		return time.Local
	}
	loc, err := time.LoadLocation(c.StationTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func detectLegacyEnvWarnings() []string {
	legacy := map[string]string{
		"AUTODJ_CROSSFADE_MS": "use RADIOPRO_CROSSFADE_MS",
		"JWT_SIGNING_KEY":     "use RADIOPRO_JWT_SIGNING_KEY",
		"TRACING_ENABLED":     "use RADIOPRO_TRACING_ENABLED",
		"OTLP_ENDPOINT":       "use RADIOPRO_OTLP_ENDPOINT",
	}

	warnings := make([]string, 0, len(legacy))
	for key, recommendation := range legacy {
		if os.Getenv(key) != "" {
			warnings = append(warnings, fmt.Sprintf("legacy env key %s is set; %s", key, recommendation))
		}
	}
	return warnings
}

// splitList splits a comma separated value, dropping blanks and duplicates.
func splitList(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvDurationMSAny reads a millisecond count from the first set key.
func getEnvDurationMSAny(keys []string, def time.Duration) time.Duration {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
				return time.Duration(parsed) * time.Millisecond
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
