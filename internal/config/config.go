package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the platform event consumer
type Config struct {
	// Kafka configuration
	KafkaBrokers  []string
	KafkaTopic    string
	ConsumerGroup string
	UpstreamTopic string

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SettingsTTL   time.Duration

	// Delivery activity window
	ActivityWindow time.Duration

	// Worker pool configuration
	WorkerCount  int
	MaxQueueSize int

	// Bridge configuration
	EnableDebugger         bool
	DebugBuild             bool
	AckTimeout             time.Duration
	RegistrationTimeout    time.Duration
	UpstreamTimeout        time.Duration
	PermissionQueryTimeout time.Duration
	UpstreamDomain         string
	UpstreamMode           string

	// Service configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	cfg := &Config{
		// Kafka defaults
		KafkaBrokers:  getStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "platform-events"),
		ConsumerGroup: getEnv("CONSUMER_GROUP", "notification-bridge"),
		UpstreamTopic: getEnv("UPSTREAM_TOPIC", "upstream-calls"),

		// Redis defaults
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		SettingsTTL:   getEnvAsDuration("SETTINGS_TTL", 30*24*time.Hour),

		ActivityWindow: getEnvAsDuration("ACTIVITY_WINDOW", 1*time.Hour),

		// Worker pool defaults
		WorkerCount:  getEnvAsInt("WORKER_COUNT", 10),
		MaxQueueSize: getEnvAsInt("MAX_QUEUE_SIZE", 1000),

		// Bridge defaults
		EnableDebugger:         getEnvAsBool("ENABLE_DEBUGGER", false),
		DebugBuild:             getEnvAsBool("DEBUG_BUILD", false),
		AckTimeout:             getEnvAsDuration("ACK_TIMEOUT", 5*time.Second),
		RegistrationTimeout:    getEnvAsDuration("REGISTRATION_TIMEOUT", 10*time.Second),
		UpstreamTimeout:        getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		PermissionQueryTimeout: getEnvAsDuration("PERMISSION_QUERY_TIMEOUT", 2*time.Second),
		UpstreamDomain:         getEnv("UPSTREAM_DOMAIN", ""),
		UpstreamMode:           getEnv("UPSTREAM_MODE", "production"),

		// Service defaults
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	return cfg
}

// DebuggerEnabled reports whether debug events are recorded
func (c *Config) DebuggerEnabled() bool {
	return c.EnableDebugger && c.DebugBuild
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
