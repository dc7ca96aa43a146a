package redis

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/pkg/models"
)

func TestSettingsKey(t *testing.T) {
	if got := SettingsKey("device-1"); got != "device_settings:device-1" {
		t.Errorf("Expected device_settings:device-1, got %s", got)
	}
}

func TestSetDeviceSettingsRequiresDeviceID(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	// Validation fails before any connection is attempted
	client := Wrap(NewRedisClient("127.0.0.1:0", "", 0), time.Hour, logger)
	defer client.Close()

	if err := client.SetDeviceSettings(context.Background(), nil); err == nil {
		t.Error("Expected error for nil settings")
	}
	if err := client.SetDeviceSettings(context.Background(), &models.DeviceSettings{Alert: true}); err == nil {
		t.Error("Expected error for settings without device id")
	}
}

func TestActivityWindowKey(t *testing.T) {
	window := NewActivityWindow(NewRedisClient("127.0.0.1:0", "", 0), time.Minute)
	if got := window.key("device-1"); got != "delivery_activity:device-1" {
		t.Errorf("Expected delivery_activity:device-1, got %s", got)
	}
}
