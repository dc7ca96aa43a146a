// Package redis stores per-device notification settings and delivery
// activity counters in Redis
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/authz"
	"notification-bridge/pkg/models"
)

const settingsKeyPrefix = "device_settings:"

// Client wraps a Redis client
type Client struct {
	client      *redis.Client
	settingsTTL time.Duration
	logger      *logrus.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(host, port, password string, db int, settingsTTL time.Duration, logger *logrus.Logger) (*Client, error) {
	rdb := NewRedisClient(fmt.Sprintf("%s:%s", host, port), password, db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := HealthCheck(ctx, rdb); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return Wrap(rdb, settingsTTL, logger), nil
}

// Wrap builds a Client around an existing connection
func Wrap(rdb *redis.Client, settingsTTL time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		client:      rdb,
		settingsTTL: settingsTTL,
		logger:      logger,
	}
}

// NewRedisClient creates a new Redis connection with the given configuration
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// HealthCheck performs a health check on the Redis connection
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// SettingsKey returns the key holding a device's notification settings
func SettingsKey(deviceID string) string {
	return settingsKeyPrefix + deviceID
}

// SetDeviceSettings stores the notification settings a device last reported
func (c *Client) SetDeviceSettings(ctx context.Context, settings *models.DeviceSettings) error {
	if settings == nil || settings.DeviceID == "" {
		return errors.New("device settings require a device id")
	}
	if settings.UpdatedAt.IsZero() {
		settings.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal device settings: %w", err)
	}

	key := SettingsKey(settings.DeviceID)
	if err := c.client.Set(ctx, key, data, c.settingsTTL).Err(); err != nil {
		return fmt.Errorf("failed to set device settings: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"device_id": settings.DeviceID,
		"key":       key,
	}).Debug("Device settings stored successfully")

	return nil
}

// GetDeviceSettings retrieves a device's notification settings. A missing
// record yields authz.ErrSettingsNotFound.
func (c *Client) GetDeviceSettings(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
	data, err := c.client.Get(ctx, SettingsKey(deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("device %s: %w", deviceID, authz.ErrSettingsNotFound)
		}
		return nil, fmt.Errorf("failed to get device settings: %w", err)
	}

	var settings models.DeviceSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device settings: %w", err)
	}

	return &settings, nil
}

// DeleteDeviceSettings removes a device's notification settings
func (c *Client) DeleteDeviceSettings(ctx context.Context, deviceID string) error {
	key := SettingsKey(deviceID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete device settings: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"key":       key,
	}).Debug("Device settings deleted successfully")

	return nil
}

// IncrementCounter increments a counter in Redis
func (c *Client) IncrementCounter(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val(), nil
}

// GetCounter gets a counter value from Redis
func (c *Client) GetCounter(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get counter: %w", err)
	}
	return val, nil
}

// Redis exposes the underlying connection
func (c *Client) Redis() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return HealthCheck(ctx, c.client)
}
