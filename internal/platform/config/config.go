package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration so main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresDSN backs the write-once audit store. Empty selects the
	// append-only file store.
	PostgresDSN string

	// AuditLogPath is the fallback append-only audit file.
	AuditLogPath string

	Redis RedisConfig

	// KafkaBrokers enables best-effort mirroring of committed audit records.
	// Empty disables the mirror.
	KafkaBrokers []string
	KafkaTopic   string

	// RateLimitPerMinute caps tool calls per caller. Zero disables limiting.
	RateLimitPerMinute int
}

// RedisConfig captures Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("UNIGRAPH_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:   os.Getenv("AUDIT_POSTGRES_DSN"),
		AuditLogPath:  envOr("AUDIT_LOG_PATH", "./data/audit_log.jsonl"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaTopic:         envOr("AUDIT_KAFKA_TOPIC", "unigraph.audit.records"),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 0),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitCSV(brokers)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
