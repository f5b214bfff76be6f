// Package config loads service configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Intake   Intake
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Auth configures operator authentication.
type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	// AdminKeyHash is a bcrypt hash of the admin API key. Empty disables the
	// admin surface.
	AdminKeyHash string
}

// Postgres configures the document record store. An empty DSN selects the
// in-memory store.
type Postgres struct {
	DSN string
}

// Redis configures the shared state snapshot store. An empty URL selects the
// in-memory store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit event sink. Empty brokers disable it.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Intake configures the upstream document intake service.
type Intake struct {
	BaseURL string
	Timeout time.Duration
}

// FromEnv builds the configuration from environment variables, applying
// development defaults where unset.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:              envOr("VERIDOC_ADDR", ":8080"),
			ShutdownTimeout:   envDuration("VERIDOC_SHUTDOWN_TIMEOUT", 10*time.Second),
			ReadHeaderTimeout: envDuration("VERIDOC_READ_HEADER_TIMEOUT", 5*time.Second),
		},
		Auth: Auth{
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envOr("JWT_ISSUER", "veridoc"),
			Audience:      envOr("JWT_AUDIENCE", "veridoc-dashboard"),
			AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: envOr("KAFKA_AUDIT_TOPIC", "veridoc.audit"),
		},
		Intake: Intake{
			BaseURL: envOr("INTAKE_BASE_URL", "http://localhost:9090"),
			Timeout: envDuration("INTAKE_TIMEOUT", 60*time.Second),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
