package authz

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"notification-bridge/pkg/models"
)

type sourceFunc func(ctx context.Context, deviceID string) (*models.DeviceSettings, error)

func (f sourceFunc) GetDeviceSettings(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
	return f(ctx, deviceID)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		settings *models.DeviceSettings
		expected models.AuthorizationStatus
	}{
		{"nil settings", nil, models.AuthorizationNotDetermined},
		{"alert only", &models.DeviceSettings{Alert: true, AuthorizationStatus: 2}, models.AuthorizationAuthorized},
		{"badge only", &models.DeviceSettings{Badge: true}, models.AuthorizationAuthorized},
		{"sound only", &models.DeviceSettings{Sound: true, AuthorizationStatus: 1}, models.AuthorizationAuthorized},
		{"nothing granted, not asked", &models.DeviceSettings{AuthorizationStatus: models.NotDeterminedRaw}, models.AuthorizationNotDetermined},
		{"nothing granted, refused", &models.DeviceSettings{AuthorizationStatus: 1}, models.AuthorizationDenied},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.settings))
		})
	}
}

func TestResolveQueriesEveryTime(t *testing.T) {
	var calls atomic.Int32
	granted := atomic.Bool{}
	source := sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
		calls.Add(1)
		return &models.DeviceSettings{DeviceID: deviceID, Alert: granted.Load(), AuthorizationStatus: 1}, nil
	})
	resolver := NewResolver(source, time.Second, quietLogger())

	assert.Equal(t, models.AuthorizationDenied, resolver.Resolve(context.Background(), "device-1"))
	granted.Store(true)
	assert.Equal(t, models.AuthorizationAuthorized, resolver.Resolve(context.Background(), "device-1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveFallsBackOnFailure(t *testing.T) {
	cases := map[string]SettingsSource{
		"error": sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
			return nil, errors.New("redis down")
		}),
		"not found": sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
			return nil, ErrSettingsNotFound
		}),
		"nil settings": sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
			return nil, nil
		}),
		"panic": sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
			panic("settings bridge crashed")
		}),
		"nil source": nil,
	}

	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			resolver := NewResolver(source, time.Second, quietLogger())
			assert.Equal(t, models.AuthorizationNotDetermined, resolver.Resolve(context.Background(), "device-1"))
		})
	}
}

func TestResolveBoundsSlowQueries(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	resolver := NewResolver(source, 20*time.Millisecond, quietLogger())

	start := time.Now()
	status := resolver.Resolve(context.Background(), "device-1")
	assert.Equal(t, models.AuthorizationNotDetermined, status)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolveAsync(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, deviceID string) (*models.DeviceSettings, error) {
		return &models.DeviceSettings{Badge: true}, nil
	})
	resolver := NewResolver(source, time.Second, quietLogger())

	select {
	case status := <-resolver.ResolveAsync(context.Background(), "device-1"):
		assert.Equal(t, models.AuthorizationAuthorized, status)
	case <-time.After(time.Second):
		t.Fatal("ResolveAsync never delivered a status")
	}
}

func TestMemorySource(t *testing.T) {
	source := NewMemorySource()
	resolver := NewResolver(source, time.Second, quietLogger())
	ctx := context.Background()

	assert.Equal(t, models.AuthorizationNotDetermined, resolver.Resolve(ctx, "device-1"))
	_, err := source.GetDeviceSettings(ctx, "device-1")
	assert.ErrorIs(t, err, ErrSettingsNotFound)

	assert.NoError(t, source.SetDeviceSettings(ctx, &models.DeviceSettings{DeviceID: "device-1", AuthorizationStatus: 1}))
	assert.Equal(t, models.AuthorizationDenied, resolver.Resolve(ctx, "device-1"))

	assert.NoError(t, source.SetDeviceSettings(ctx, &models.DeviceSettings{DeviceID: "device-1", Sound: true}))
	assert.Equal(t, models.AuthorizationAuthorized, resolver.Resolve(ctx, "device-1"))

	assert.NoError(t, source.DeleteDeviceSettings(ctx, "device-1"))
	assert.Equal(t, models.AuthorizationNotDetermined, resolver.Resolve(ctx, "device-1"))

	assert.Error(t, source.SetDeviceSettings(ctx, &models.DeviceSettings{}))
}
