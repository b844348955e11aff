// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures everything cmd/server needs to wire the service.
type Server struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration

	// DefaultLandingPath is where remediation flows send the user when no
	// redirect memory is stashed.
	DefaultLandingPath string

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	Registry RegistryConfig

	IdentityProviderURL string
}

// RedisConfig holds connection settings for the session and redirect-memory
// stores. Empty URL means Redis is not configured and memory stores are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the DSN for durable storage. Empty DSN means memory
// stores are used.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig holds audit sink settings. No brokers means audit events stay
// in the in-process store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RegistryConfig points at the national identity registry used for document
// verification.
type RegistryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("CONCIERGE_ADDR", ":8080"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:           envDurationOr("TOKEN_TTL", 24*time.Hour),
		DefaultLandingPath: envOr("DEFAULT_LANDING_PATH", "/rooms"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Registry: RegistryConfig{
			BaseURL: os.Getenv("REGISTRY_BASE_URL"),
			APIKey:  os.Getenv("REGISTRY_API_KEY"),
			Timeout: envDurationOr("REGISTRY_TIMEOUT", 5*time.Second),
		},
		IdentityProviderURL: os.Getenv("IDENTITY_PROVIDER_URL"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
		cfg.Kafka.Topic = envOr("KAFKA_AUDIT_TOPIC", "concierge.audit")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
