package authz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notification-bridge/pkg/models"
)

// MemorySource keeps device settings in process memory. It backs the
// standalone mode where no Redis is configured.
type MemorySource struct {
	mu       sync.RWMutex
	settings map[string]models.DeviceSettings
}

// NewMemorySource creates an empty in-memory settings source
func NewMemorySource() *MemorySource {
	return &MemorySource{settings: make(map[string]models.DeviceSettings)}
}

// SetDeviceSettings stores a copy of the settings
func (m *MemorySource) SetDeviceSettings(ctx context.Context, settings *models.DeviceSettings) error {
	if settings == nil || settings.DeviceID == "" {
		return fmt.Errorf("device settings require a device id")
	}
	stored := *settings
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.DeviceID] = stored
	return nil
}

// GetDeviceSettings returns a copy of the stored settings
func (m *MemorySource) GetDeviceSettings(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings, ok := m.settings[deviceID]
	if !ok {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrSettingsNotFound)
	}
	return &settings, nil
}

// DeleteDeviceSettings forgets a device
func (m *MemorySource) DeleteDeviceSettings(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, deviceID)
	return nil
}
