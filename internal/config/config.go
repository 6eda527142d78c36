package config

import (
	"os"
	"strconv"
	"time"
)

// Config leadhub-data（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Auth struct {
		// Mode selects the identity resolver: "session" (Redis-backed Bearer tokens)
		// or "static" (fixed owner identity, non-production only).
		Mode        string
		StaticOwner string
		JWTSecret   string
		LinkTTL     time.Duration
		SessionTTL  time.Duration
	}
	// Webhook: optional outbound notification on lead creation. Empty = disabled.
	Webhook struct {
		URL     string
		Timeout time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "leadhub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	// Default to session auth; "static" is the documented non-production bypass
	// and must be selected explicitly.
	cfg.Auth.Mode = getEnv("AUTH_MODE", "session")
	cfg.Auth.StaticOwner = getEnv("AUTH_STATIC_OWNER", "dev-test-user")
	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "change-me")
	cfg.Auth.LinkTTL = parseDuration(getEnv("AUTH_LINK_TTL", "15m"), 15*time.Minute)
	cfg.Auth.SessionTTL = parseDuration(getEnv("AUTH_SESSION_TTL", "720h"), 720*time.Hour)

	cfg.Webhook.URL = getEnv("LEAD_WEBHOOK_URL", "")
	cfg.Webhook.Timeout = parseDuration(getEnv("LEAD_WEBHOOK_TIMEOUT", "3s"), 3*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
