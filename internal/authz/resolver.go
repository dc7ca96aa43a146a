// Package authz resolves the current notification authorization status of a device
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/pkg/models"
)

// ErrSettingsNotFound is returned by a SettingsSource that has no record for a device
var ErrSettingsNotFound = errors.New("device settings not found")

// SettingsSource looks up the platform notification settings of a device
type SettingsSource interface {
	GetDeviceSettings(ctx context.Context, deviceID string) (*models.DeviceSettings, error)
}

// Resolver maps platform notification settings to an AuthorizationStatus.
// Results are never cached; the user may change permissions at any time.
type Resolver struct {
	source       SettingsSource
	queryTimeout time.Duration
	logger       *logrus.Logger
}

// NewResolver creates a new authorization status resolver
func NewResolver(source SettingsSource, queryTimeout time.Duration, logger *logrus.Logger) *Resolver {
	if queryTimeout <= 0 {
		queryTimeout = 2 * time.Second
	}
	return &Resolver{
		source:       source,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// Resolve returns the device's current status. It never fails: a failed
// query resolves to notDetermined.
func (r *Resolver) Resolve(ctx context.Context, deviceID string) models.AuthorizationStatus {
	settings, err := r.query(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			r.logger.WithField("device_id", deviceID).Debug("No notification settings reported, status not determined")
		} else {
			r.logger.WithError(err).WithField("device_id", deviceID).Warn("Permission query failed, falling back to notDetermined")
		}
		return models.AuthorizationNotDetermined
	}
	return Classify(settings)
}

// ResolveAsync runs Resolve on its own goroutine. The returned channel
// receives exactly one value.
func (r *Resolver) ResolveAsync(ctx context.Context, deviceID string) <-chan models.AuthorizationStatus {
	result := make(chan models.AuthorizationStatus, 1)
	go func() {
		result <- r.Resolve(ctx, deviceID)
	}()
	return result
}

// Classify collapses alert/badge/sound permissions into a single status
func Classify(settings *models.DeviceSettings) models.AuthorizationStatus {
	if settings == nil {
		return models.AuthorizationNotDetermined
	}
	if settings.AnyGranted() {
		return models.AuthorizationAuthorized
	}
	if settings.AuthorizationStatus == models.NotDeterminedRaw {
		return models.AuthorizationNotDetermined
	}
	return models.AuthorizationDenied
}

func (r *Resolver) query(ctx context.Context, deviceID string) (settings *models.DeviceSettings, err error) {
	if r.source == nil {
		return nil, fmt.Errorf("no settings source configured: %w", bridgeerr.ErrPermissionQuery)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			settings = nil
			err = fmt.Errorf("%v: %w", &bridgeerr.PanicError{Op: "getDeviceSettings", Value: recovered}, bridgeerr.ErrPermissionQuery)
		}
	}()

	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	settings, err = r.source.GetDeviceSettings(queryCtx, deviceID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, bridgeerr.ErrPermissionQuery)
	}
	if settings == nil {
		return nil, ErrSettingsNotFound
	}
	return settings, nil
}
