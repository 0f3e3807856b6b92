package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	ReportEventTopic string

	// Object storage (S3 / R2 compatible, path-style)
	StorageEndpoint  string
	StorageRegion    string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	// Interpretation provider
	ProviderAPIKey    string
	ProviderBaseURL   string
	ProviderModelName string
	ProviderMaxTokens int
	ProviderTimeout   time.Duration

	// Upload gatekeeper
	UploadMaxBytes   int64
	UploadPolicyFile string

	// History projection cache
	HistoryCacheTTL time.Duration

	// Auth
	JWTSecret  string
	SessionTTL time.Duration
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 6*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "carelytic"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "carelytic123"),
		PostgresDB:       getEnv("POSTGRES_DB", "carelytic"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		ReportEventTopic: getEnv("REPORT_EVENT_TOPIC", "report-lifecycle"),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageRegion:    getEnv("STORAGE_REGION", "auto"),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "carelytic-reports"),
		StorageUseSSL:    getBoolEnv("STORAGE_USE_SSL", false),

		ProviderAPIKey:    getEnv("PROVIDER_API_KEY", ""),
		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", "https://api.openai.com/v1"),
		ProviderModelName: getEnv("PROVIDER_MODEL_NAME", "gpt-4.1-mini"),
		ProviderMaxTokens: getIntEnv("PROVIDER_MAX_OUTPUT_TOKENS", 1200),
		ProviderTimeout:   getDuration("PROVIDER_TIMEOUT", 60*time.Second),

		UploadMaxBytes:   int64(getIntEnv("UPLOAD_MAX_BYTES", 5*1024*1024)),
		UploadPolicyFile: getEnv("UPLOAD_POLICY_FILE", ""),

		HistoryCacheTTL: getDuration("HISTORY_CACHE_TTL", time.Minute),

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
