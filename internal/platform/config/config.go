package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. An empty infrastructure URL
// selects the in-memory implementation of that port, which keeps local
// development dependency-free.
type Config struct {
	Addr            string
	JWTSigningKey   string
	PostgresURL     string
	Redis           RedisConfig
	Kafka           KafkaConfig
	IdempotencyTTL  time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig configures the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the domain event publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("CUSTODIA_ADDR", ":8080"),
		JWTSigningKey: os.Getenv("CUSTODIA_JWT_SIGNING_KEY"),
		PostgresURL:   os.Getenv("CUSTODIA_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("CUSTODIA_REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: envOr("CUSTODIA_KAFKA_TOPIC", ""),
		},
		IdempotencyTTL:  durationOr("CUSTODIA_IDEMPOTENCY_TTL", 24*time.Hour),
		ShutdownTimeout: durationOr("CUSTODIA_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if brokers := os.Getenv("CUSTODIA_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Kafka.Brokers = append(cfg.Kafka.Brokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
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
