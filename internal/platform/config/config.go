// Package config builds process configuration from the environment once at
// startup. The resulting struct is passed by reference into the components
// that need it; nothing here is global mutable state.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DatabaseURL enables the PostgreSQL stores when non-empty. With an
	// empty URL the server runs on in-memory stores (development mode).
	DatabaseURL string

	// RedisURL enables the finalized-settlement cache when non-empty.
	RedisURL string

	// WebhookSecret is the shared secret for settlement notification
	// authentication.
	WebhookSecret string

	// LedgerRPCURL is the JSON-RPC endpoint of the settlement ledger.
	LedgerRPCURL string
	// LedgerTimeout bounds a single confirmation attempt.
	LedgerTimeout time.Duration
	// LedgerMaxRetries bounds retries of failed ledger lookups before the
	// gateway fails closed.
	LedgerMaxRetries int

	// KafkaBrokers enables the reputation event publisher when non-empty.
	KafkaBrokers []string
	// KafkaTopic is the topic reputation events are published to.
	KafkaTopic string

	// PinServiceURL and AttestServiceURL point at the external pinning and
	// attestation collaborators. Empty values select no-op implementations.
	PinServiceURL    string
	AttestServiceURL string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:             envOr("REGISTRY_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		WebhookSecret:    os.Getenv("WEBHOOK_SECRET"),
		LedgerRPCURL:     envOr("LEDGER_RPC_URL", "https://api.devnet.solana.com"),
		LedgerTimeout:    envDurationOr("LEDGER_TIMEOUT", 5*time.Second),
		LedgerMaxRetries: envIntOr("LEDGER_MAX_RETRIES", 3),
		KafkaBrokers:     envList("KAFKA_BROKERS"),
		KafkaTopic:       envOr("KAFKA_TOPIC", "reputation.events"),
		PinServiceURL:    os.Getenv("PIN_SERVICE_URL"),
		AttestServiceURL: os.Getenv("ATTEST_SERVICE_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
