// Package config loads all runtime configuration from the environment so
// main stays lean.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	strutil "whaled/pkg/platform/strings"
)

// Config aggregates every subsystem's configuration.
type Config struct {
	Server   Server
	Auth     Auth
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Watcher  Watcher
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Auth holds minting and admin credentials. When AdminTokenHash is set the
// admin endpoints compare against the bcrypt hash instead of the plaintext
// token.
type Auth struct {
	JWTSigningKey  string
	JWTIssuer      string
	AdminToken     string
	AdminTokenHash string
}

// Postgres holds the ledger and audit database settings. An empty DSN keeps
// the service on in-memory stores, which is the development default.
type Postgres struct {
	DSN string
}

// Redis holds cache and dedupe settings. An empty URL disables Redis.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TokenTTL     time.Duration
	DedupeTTL    time.Duration
}

// Kafka holds audit bus settings. Empty brokers disable the outbox relay.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Watcher holds transfer watcher settings. An empty RPC URL disables the
// watcher endpoints.
type Watcher struct {
	RPCURL       string
	TokenAddress string
	PollInterval time.Duration
	PollLimit    int
	Threshold    *big.Int
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:            envOr("WHALED_ADDR", ":8080"),
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: Auth{
			JWTSigningKey:  envOr("WHALED_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:      envOr("WHALED_JWT_ISSUER", "whaled"),
			AdminToken:     os.Getenv("WHALED_ADMIN_TOKEN"),
			AdminTokenHash: os.Getenv("WHALED_ADMIN_TOKEN_HASH"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("WHALED_POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("WHALED_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TokenTTL:     5 * time.Minute,
			DedupeTTL:    24 * time.Hour,
		},
		Kafka: Kafka{
			Topic: envOr("WHALED_KAFKA_TOPIC", "whaled.audit"),
		},
		Watcher: Watcher{
			RPCURL:       os.Getenv("WHALED_ETH_RPC_URL"),
			TokenAddress: os.Getenv("WHALED_WATCH_TOKEN_ADDRESS"),
		},
	}

	if brokers := os.Getenv("WHALED_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strutil.DedupeAndTrim(strings.Split(brokers, ","))
	}

	var err error
	if cfg.Watcher.PollInterval, err = envDuration("WHALED_WATCH_POLL_INTERVAL", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Watcher.PollLimit, err = envInt("WHALED_WATCH_POLL_LIMIT", 3); err != nil {
		return Config{}, err
	}
	if cfg.Watcher.Threshold, err = envBigInt("WHALED_WATCH_THRESHOLD", big.NewInt(1_000_000)); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func envBigInt(key string, fallback *big.Int) (*big.Int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("parse %s: not a base-10 integer", key)
	}
	return n, nil
}

