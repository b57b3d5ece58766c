package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	PairingCode string // 配对码；为空时只有本机可以申请令牌
	LogLevel    string
	LogFormat   string // text, json

	// Remote aggregate
	SupabaseURL       string
	SupabaseKey       string
	ProfileNickname   string
	ProfileInstrument string

	// Sync coordinator
	SyncInterval    time.Duration
	SyncPushTimeout time.Duration
	SyncMaxRetries  int

	// Analysis
	DefaultTargetRatio  float64
	AnalysisMaxDuration time.Duration // 最长录音时长
	MaxUploadBytes      int64 // 最大上传大小（字节）
	RateLimitPerMinute  int
}

// Load 加载配置
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", slog.Any("error", err))
	}

	cfg := &Config{
		Port:        getEnv("PORT", ":8080"),
		DBPath:      getEnv("DB_PATH", "./data/practice.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		PairingCode: os.Getenv("AUTH_PAIRING_CODE"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		ProfileNickname:   getEnv("PROFILE_NICKNAME", "익명"),
		ProfileInstrument: getEnv("PROFILE_INSTRUMENT", "piano"),

		SyncInterval:    getDuration("SYNC_INTERVAL", 5*time.Minute),
		SyncPushTimeout: getDuration("SYNC_PUSH_TIMEOUT", 15*time.Second),
		SyncMaxRetries:  getInt("SYNC_MAX_RETRIES", 3),

		DefaultTargetRatio:  getFloat("ANALYSIS_DEFAULT_RATIO", 0.7),
		AnalysisMaxDuration: getDuration("ANALYSIS_MAX_DURATION", 24*time.Hour),
		MaxUploadBytes:      int64(getInt("MAX_UPLOAD_BYTES", 50<<20)),
		RateLimitPerMinute:  getInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.JWTSecret == "" {
		slog.Warn("JWT_SECRET not set - API authentication is disabled")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		slog.Warn("SUPABASE_URL or SUPABASE_KEY not set - sync will stay offline")
	}
	if cfg.AnalysisMaxDuration <= 0 || cfg.AnalysisMaxDuration > 24*time.Hour {
		slog.Warn("ANALYSIS_MAX_DURATION out of range, using 24h", slog.Duration("value", cfg.AnalysisMaxDuration))
		cfg.AnalysisMaxDuration = 24 * time.Hour
	}
	if cfg.DefaultTargetRatio < 0 || cfg.DefaultTargetRatio > 1 {
		slog.Warn("ANALYSIS_DEFAULT_RATIO out of range, using 0.7", slog.Float64("value", cfg.DefaultTargetRatio))
		cfg.DefaultTargetRatio = 0.7
	}

	return cfg
}

// RemoteEnabled reports whether a remote backend is configured
func (c *Config) RemoteEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer in environment", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment", slog.String("key", key), slog.String("value", v))
		return fallback
	}
	return d
}
