package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. Built from environment
// variables so main stays lean.
type Config struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string
}

// OverviewCacheTTL bounds the staleness of cached department overview reports.
// Reports are recomputed on miss, so a short TTL trades freshness for load.
var OverviewCacheTTL = 5 * time.Minute

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	addr := os.Getenv("COHORT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("COHORT_KAFKA_TOPIC")
	if topic == "" {
		topic = "cohort.notifications"
	}

	jwtSigningKey := os.Getenv("COHORT_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("COHORT_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Addr:          addr,
		PostgresURL:   os.Getenv("COHORT_POSTGRES_URL"),
		RedisURL:      os.Getenv("COHORT_REDIS_URL"),
		KafkaBrokers:  brokers,
		KafkaTopic:    topic,
		JWTSigningKey: jwtSigningKey,
	}
}
