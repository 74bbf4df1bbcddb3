// Package config loads service configuration from the environment, with a
// .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string
	Port                          int
	LogLevel                      string
	PrettyLogs                    bool
	HttpServerWriteTimeoutSeconds int
	HttpServerReadTimeoutSeconds  int
	HttpServerIdleTimeoutSeconds  int
	MaxHeaderBytes                int
	ReadHeaderTimeoutSeconds      int
	AllowOrigins                  []string
	AllowMethods                  []string
	StartupMaxAttempts            int

	// PostgreSQL
	DatabaseDriver                string
	DatabaseHost                  string
	DatabasePort                  string
	DatabaseUserName              string
	DatabasePassword              string
	DatabaseName                  string
	DatabaseSSLMode               string
	DatabaseMaxOpenConns          int
	DatabaseMaxIdleConns          int
	DatabaseConnMaxLifetime       time.Duration
	DatabaseMigrationFolderPath   string
	DatabaseMigrationVersion      int
	DatabaseMigrationAutoRollback bool

	// Redis
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Kafka consumer (scraped listings)
	KafkaBrokers         []string
	KafkaListingsTopic   string
	KafkaConsumerGroup   string
	KafkaConsumerEnabled bool

	// Kafka producer (match outcomes)
	KafkaOutputTopic  string
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
	KafkaRequiredAcks int
	KafkaCompression  string

	// Matching
	MatchThreshold       float64
	MatchAcceptThreshold float64
	VerifyThreshold      float64
	TableRefreshInterval time.Duration

	// Probing
	ProbeEnabled           bool
	ProbeResyBaseURL       string
	ProbeOpenTableBaseURL  string
	ProbeRequestsPerSecond float64
	ProbeBurst             int
	ProbeWorkers           int
	ProbeMaxRetries        int
	ProbeRequestTimeout    time.Duration
	ProbePositiveCacheTTL  time.Duration
	ProbeNegativeCacheTTL  time.Duration

	// Tracing
	TracingEnabled      bool
	TracingOTLPEndpoint string
	TracingOTLPProtocol string
}

// Load reads configuration from the environment. A .env file is applied
// first when present; real environment variables win.
func Load() (*Config, error) {
	// ignore a missing .env; containers set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		AppName:                       envString("APP_NAME", "reconciler-api"),
		Port:                          envInt("PORT", 3004),
		LogLevel:                      envString("LOG_LEVEL", "info"),
		PrettyLogs:                    envBool("PRETTY_LOGS", false),
		HttpServerWriteTimeoutSeconds: envInt("HTTP_SERVER_WRITE_TIMEOUT_SECONDS", 10),
		HttpServerReadTimeoutSeconds:  envInt("HTTP_SERVER_READ_TIMEOUT_SECONDS", 10),
		HttpServerIdleTimeoutSeconds:  envInt("HTTP_SERVER_IDLE_TIMEOUT_SECONDS", 10),
		MaxHeaderBytes:                envInt("HTTP_SERVER_MAX_HEADER_BYTES", 64000),
		ReadHeaderTimeoutSeconds:      envInt("HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS", 10),
		AllowOrigins:                  envSlice("HTTP_SERVER_ALLOW_ORIGINS", []string{"*"}),
		AllowMethods:                  envSlice("HTTP_SERVER_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE"}),
		StartupMaxAttempts:            envInt("STARTUP_MAX_ATTEMPTS", 5),

		DatabaseDriver:                envString("DB_DRIVER", "postgres"),
		DatabaseHost:                  envString("DB_HOST", ""),
		DatabasePort:                  envString("DB_PORT", "5432"),
		DatabaseUserName:              envString("DB_USER_NAME", ""),
		DatabasePassword:              envString("DB_PASSWORD", ""),
		DatabaseName:                  envString("DB_NAME", "reconciler"),
		DatabaseSSLMode:               envString("DB_SSL_MODE", "disable"),
		DatabaseMaxOpenConns:          envInt("DB_MAX_OPEN_CONNS", 25),
		DatabaseMaxIdleConns:          envInt("DB_MAX_IDLE_CONNS", 10),
		DatabaseConnMaxLifetime:       envDuration("DB_CONN_MAX_LIFETIME", 10*time.Second),
		DatabaseMigrationFolderPath:   envString("DB_MIGRATION_FOLDER_PATH", "db/pg"),
		DatabaseMigrationVersion:      envInt("DB_MIGRATION_VERSION", 0),
		DatabaseMigrationAutoRollback: envBool("DB_MIGRATION_AUTO_ROLLBACK", true),

		RedisHost:     envString("REDIS_HOST", "localhost"),
		RedisPort:     envInt("REDIS_PORT", 6379),
		RedisPassword: envString("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		KafkaBrokers:         envSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaListingsTopic:   envString("KAFKA_LISTINGS_TOPIC", "scraped-listings"),
		KafkaConsumerGroup:   envString("KAFKA_CONSUMER_GROUP", "reconciler-consumer"),
		KafkaConsumerEnabled: envBool("KAFKA_CONSUMER_ENABLED", true),

		KafkaOutputTopic:  envString("KAFKA_OUTPUT_TOPIC", "venue-match-events"),
		KafkaBatchSize:    envInt("KAFKA_BATCH_SIZE", 100),
		KafkaBatchTimeout: envDuration("KAFKA_BATCH_TIMEOUT", 100*time.Millisecond),
		KafkaRequiredAcks: envInt("KAFKA_REQUIRED_ACKS", 1),
		KafkaCompression:  envString("KAFKA_COMPRESSION", "snappy"),

		MatchThreshold:       envFloat("MATCH_THRESHOLD", 0.6),
		MatchAcceptThreshold: envFloat("MATCH_ACCEPT_THRESHOLD", 0.85),
		VerifyThreshold:      envFloat("VERIFY_THRESHOLD", 0.7),
		TableRefreshInterval: envDuration("TABLE_REFRESH_INTERVAL", 5*time.Minute),

		ProbeEnabled:           envBool("PROBE_ENABLED", true),
		ProbeResyBaseURL:       envString("PROBE_RESY_BASE_URL", "https://resy.com/cities/new-york-ny/venues/"),
		ProbeOpenTableBaseURL:  envString("PROBE_OPENTABLE_BASE_URL", "https://www.opentable.com/r/"),
		ProbeRequestsPerSecond: envFloat("PROBE_REQUESTS_PER_SECOND", 3),
		ProbeBurst:             envInt("PROBE_BURST", 5),
		ProbeWorkers:           envInt("PROBE_WORKERS", 4),
		ProbeMaxRetries:        envInt("PROBE_MAX_RETRIES", 3),
		ProbeRequestTimeout:    envDuration("PROBE_REQUEST_TIMEOUT", 10*time.Second),
		ProbePositiveCacheTTL:  envDuration("PROBE_POSITIVE_CACHE_TTL", 24*time.Hour),
		ProbeNegativeCacheTTL:  envDuration("PROBE_NEGATIVE_CACHE_TTL", 6*time.Hour),

		TracingEnabled:      envBool("TRACING_ENABLED", false),
		TracingOTLPEndpoint: envString("TRACING_OTLP_ENDPOINT", "localhost:4317"),
		TracingOTLPProtocol: envString("TRACING_OTLP_PROTOCOL", "grpc"),
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSlice(key string, fallback []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
