// Package config provides configuration management for the notification bridge
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// BuildType is set at link time:
//
//	go build -ldflags "-X notification-bridge/pkg/config.BuildType=debug"
var BuildType = "release"

// IsDebugBuild reports whether the binary was linked as a debug build
func IsDebugBuild() bool {
	return strings.EqualFold(BuildType, "debug")
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Upstream UpstreamConfig `yaml:"upstream"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// KafkaConfig represents Kafka configuration
type KafkaConfig struct {
	BootstrapServers string `yaml:"bootstrap_servers"`
	Topic            string `yaml:"topic"`
	GroupID          string `yaml:"group_id"`
	AutoOffsetReset  string `yaml:"auto_offset_reset"`
}

// Brokers splits the comma-separated bootstrap servers
func (k KafkaConfig) Brokers() []string {
	var brokers []string
	for _, broker := range strings.Split(k.BootstrapServers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	SettingsTTL    time.Duration `yaml:"settings_ttl"`
	ActivityWindow time.Duration `yaml:"activity_window"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// BridgeConfig holds the push lifecycle bridge settings
type BridgeConfig struct {
	EnableDebugger         bool          `yaml:"enable_debugger"`
	DebugBuild             bool          `yaml:"debug_build"`
	AckTimeout             time.Duration `yaml:"ack_timeout"`
	RegistrationTimeout    time.Duration `yaml:"registration_timeout"`
	UpstreamTimeout        time.Duration `yaml:"upstream_timeout"`
	PermissionQueryTimeout time.Duration `yaml:"permission_query_timeout"`
	Domain                 string        `yaml:"domain"`
	Mode                   string        `yaml:"mode"`
}

// DebuggerEnabled reports whether debug events are recorded. The build
// must be a debug build, either by configuration or by link flag.
func (b BridgeConfig) DebuggerEnabled() bool {
	return b.EnableDebugger && (b.DebugBuild || IsDebugBuild())
}

// UpstreamConfig represents the upstream SDK sink
type UpstreamConfig struct {
	Topic string `yaml:"topic"`
}

// Load loads configuration from a YAML file. Keys missing from the file
// keep their default values.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Kafka: KafkaConfig{
			BootstrapServers: "localhost:9092",
			Topic:            "platform-events",
			GroupID:          "notification-bridge",
			AutoOffsetReset:  "earliest",
		},
		Redis: RedisConfig{
			Host:           "localhost",
			Port:           "6379",
			Password:       "",
			DB:             0,
			SettingsTTL:    30 * 24 * time.Hour,
			ActivityWindow: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Bridge: BridgeConfig{
			EnableDebugger:         false,
			DebugBuild:             false,
			AckTimeout:             5 * time.Second,
			RegistrationTimeout:    10 * time.Second,
			UpstreamTimeout:        10 * time.Second,
			PermissionQueryTimeout: 2 * time.Second,
			Mode:                   "production",
		},
		Upstream: UpstreamConfig{
			Topic: "upstream-calls",
		},
	}
}
