// Package services provides business logic services
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/internal/authz"
	"notification-bridge/internal/commerce"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/registration"
	"notification-bridge/internal/router"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/models"
)

// ErrEventNotFound is returned when a debug event id is unknown
var ErrEventNotFound = errors.New("debug event not found")

// SettingsStore persists the notification settings devices report
type SettingsStore interface {
	authz.SettingsSource
	SetDeviceSettings(ctx context.Context, settings *models.DeviceSettings) error
	DeleteDeviceSettings(ctx context.Context, deviceID string) error
}

// ActivityCounter counts deliveries per device
type ActivityCounter interface {
	Record(ctx context.Context, deviceID string) (int64, error)
}

// Options wires a BridgeService
type Options struct {
	Settings               SettingsStore
	SDK                    upstream.SDK
	Store                  *debug.Store
	Activity               ActivityCounter
	AckTimeout             time.Duration
	RegistrationTimeout    time.Duration
	UpstreamTimeout        time.Duration
	PermissionQueryTimeout time.Duration
	Logger                 *logrus.Logger
}

// NotificationOutcome is the result of handling a notification delivery
type NotificationOutcome struct {
	DeviceID            string                     `json:"device_id"`
	LifecycleState      string                     `json:"lifecycle_state"`
	AuthorizationStatus models.AuthorizationStatus `json:"authorization_status"`
	Target              models.DispatchTarget      `json:"target"`
	Dispatched          bool                       `json:"dispatched"`
	DispatchError       string                     `json:"dispatch_error,omitempty"`
	FetchResult         models.FetchResult         `json:"fetch_result,omitempty"`
	Acknowledged        bool                       `json:"acknowledged"`
	DeliveriesInWindow  int64                      `json:"deliveries_in_window,omitempty"`
	DurationMS          int64                      `json:"duration_ms"`
}

// TokenOutcome is the result of accepting a device token
type TokenOutcome struct {
	DeviceID            string                     `json:"device_id"`
	AuthorizationStatus models.AuthorizationStatus `json:"authorization_status"`
	StatusSource        string                     `json:"status_source"`
	WithCallback        bool                       `json:"with_callback"`
}

// EventSummary is the listing view of a debug event
type EventSummary struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"`
}

// BridgeService composes the push lifecycle bridge components
type BridgeService struct {
	settings SettingsStore
	resolver *authz.Resolver
	router   *router.Router
	pipeline *registration.Pipeline
	commerce *commerce.Service
	store    *debug.Store
	sdk      upstream.SDK
	activity ActivityCounter
	logger   *logrus.Logger
}

// NewBridgeService creates a new bridge service
func NewBridgeService(opts Options) *BridgeService {
	resolver := authz.NewResolver(opts.Settings, opts.PermissionQueryTimeout, opts.Logger)

	return &BridgeService{
		settings: opts.Settings,
		resolver: resolver,
		router: router.New(resolver, opts.SDK, opts.Store, router.Config{
			UpstreamTimeout: opts.UpstreamTimeout,
			AckTimeout:      opts.AckTimeout,
		}, opts.Logger),
		pipeline: registration.New(opts.SDK, resolver, opts.Store, registration.Config{
			Timeout:         opts.RegistrationTimeout,
			UpstreamTimeout: opts.UpstreamTimeout,
		}, opts.Logger),
		commerce: commerce.NewService(opts.SDK, opts.Store, opts.UpstreamTimeout, opts.Logger),
		store:    opts.Store,
		sdk:      opts.SDK,
		activity: opts.Activity,
		logger:   opts.Logger,
	}
}

// HandleNotification routes a delivered notification upstream. ack may be
// nil when the platform expects no completion call.
func (s *BridgeService) HandleNotification(ctx context.Context, req *models.NotificationRequest, ack router.Acknowledger) *NotificationOutcome {
	var fetchResult models.FetchResult
	acknowledger := ack
	if ack != nil {
		acknowledger = func(result models.FetchResult) {
			fetchResult = result
			ack(result)
		}
	}

	outcome := s.router.Handle(ctx, router.Delivery{
		DeviceID:       req.DeviceID,
		Payload:        req.Payload,
		LifecycleState: req.LifecycleState,
	}, acknowledger)

	result := &NotificationOutcome{
		DeviceID:            req.DeviceID,
		LifecycleState:      outcome.State.String(),
		AuthorizationStatus: outcome.Status,
		Target:              outcome.Target,
		Dispatched:          outcome.DispatchErr == nil,
		Acknowledged:        outcome.Acknowledged,
		DurationMS:          outcome.Duration.Milliseconds(),
	}
	if outcome.DispatchErr != nil {
		result.DispatchError = outcome.DispatchErr.Error()
	}
	if outcome.Acknowledged {
		result.FetchResult = fetchResult
	}

	if s.activity != nil {
		count, err := s.activity.Record(ctx, req.DeviceID)
		if err != nil {
			s.logger.WithError(err).WithField("device_id", req.DeviceID).Warn("Failed to record delivery activity")
		} else {
			result.DeliveriesInWindow = count
		}
	}

	return result
}

// RegisterToken forwards a device token upstream. When the request carries
// no status label the device's current status is resolved. Only
// bridgeerr.ErrInvalidTokenFormat is returned.
func (s *BridgeService) RegisterToken(ctx context.Context, req *models.TokenRequest) (*TokenOutcome, error) {
	outcome := &TokenOutcome{
		DeviceID:     req.DeviceID,
		WithCallback: req.WithCallback,
		StatusSource: "request",
	}
	if req.AuthorizationStatus != "" {
		outcome.AuthorizationStatus = models.ParseAuthorizationStatus(req.AuthorizationStatus)
	} else {
		outcome.AuthorizationStatus = s.resolver.Resolve(ctx, req.DeviceID)
		outcome.StatusSource = "resolved"
	}

	var err error
	if req.WithCallback {
		logger := s.logger.WithField("device_id", req.DeviceID)
		err = s.pipeline.RegisterWithCallback(ctx, req.Token, outcome.AuthorizationStatus, func(result registration.Result) {
			if result.Err != nil {
				logger.WithError(result.Err).Warn("Token registration completed with error")
				return
			}
			logger.Info("Token registration completed")
		})
	} else {
		err = s.pipeline.Register(ctx, req.Token, outcome.AuthorizationStatus)
	}
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// HandleRegistrationError reports that the platform could not issue a token
func (s *BridgeService) HandleRegistrationError(ctx context.Context, req *models.RegistrationErrorRequest) models.AuthorizationStatus {
	reason := req.Error
	if reason == "" {
		reason = "unspecified registration failure"
	}
	return s.pipeline.HandleRegistrationError(ctx, req.DeviceID, errors.New(reason))
}

// UpdateDeviceSettings stores the notification settings a device reported
func (s *BridgeService) UpdateDeviceSettings(ctx context.Context, deviceID string, req *models.SettingsRequest) (*models.DeviceSettings, error) {
	settings := &models.DeviceSettings{
		DeviceID:            deviceID,
		Platform:            req.Platform,
		Alert:               req.Alert,
		Badge:               req.Badge,
		Sound:               req.Sound,
		AuthorizationStatus: req.AuthorizationStatus,
		UpdatedAt:           time.Now(),
	}

	if err := s.settings.SetDeviceSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to store device settings: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"platform":  req.Platform,
	}).Info("Device settings updated")

	return settings, nil
}

// DeleteDeviceSettings forgets a device's settings
func (s *BridgeService) DeleteDeviceSettings(ctx context.Context, deviceID string) error {
	if err := s.settings.DeleteDeviceSettings(ctx, deviceID); err != nil {
		return fmt.Errorf("failed to delete device settings: %w", err)
	}
	s.logger.WithField("device_id", deviceID).Info("Device settings deleted")
	return nil
}

// ResolveAuthorization returns the device's current authorization status
func (s *BridgeService) ResolveAuthorization(ctx context.Context, deviceID string) models.AuthorizationStatus {
	return s.resolver.Resolve(ctx, deviceID)
}

// Commerce returns the commerce event service
func (s *BridgeService) Commerce() *commerce.Service {
	return s.commerce
}

// DebugEnabled reports whether debug events are recorded
func (s *BridgeService) DebugEnabled() bool {
	return s.store.Enabled()
}

// DebugEvents lists recorded debug events, oldest first
func (s *BridgeService) DebugEvents() []EventSummary {
	events := s.store.Events()
	summaries := make([]EventSummary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, EventSummary{
			ID:        event.ID,
			Timestamp: event.Timestamp,
			EventType: event.EventType,
			Summary:   debug.Summarize(event),
		})
	}
	return summaries
}

// ExportDebugSession renders the whole debug session as text
func (s *BridgeService) ExportDebugSession() string {
	return s.store.ExportAll()
}

// ExportDebugEvent renders a single debug event as text
func (s *BridgeService) ExportDebugEvent(id string) (string, error) {
	event, ok := s.store.Get(id)
	if !ok {
		return "", fmt.Errorf("%s: %w", id, ErrEventNotFound)
	}
	return s.store.ExportEvent(event), nil
}

// Process handles a platform event consumed from Kafka
func (s *BridgeService) Process(ctx context.Context, event *models.PlatformEvent) *models.ProcessingResult {
	result := &models.ProcessingResult{
		EventID:  event.ID,
		DeviceID: event.DeviceID,
		Kind:     event.Kind,
	}

	switch event.Kind {
	case models.KindNotification:
		outcome := s.HandleNotification(ctx, &models.NotificationRequest{
			DeviceID:       event.DeviceID,
			LifecycleState: event.LifecycleState,
			Payload:        event.Payload,
		}, nil)
		result.Target = outcome.Target
		result.Success = outcome.Dispatched
		if !outcome.Dispatched {
			result.Error = errors.New(outcome.DispatchError)
		}

	case models.KindToken:
		_, err := s.RegisterToken(ctx, &models.TokenRequest{
			DeviceID:            event.DeviceID,
			Token:               event.Token,
			AuthorizationStatus: event.AuthorizationStatus,
			WithCallback:        event.WithCallback,
		})
		result.Success = err == nil
		result.Error = err

	case models.KindRegistrationError:
		s.HandleRegistrationError(ctx, &models.RegistrationErrorRequest{
			DeviceID: event.DeviceID,
			Error:    event.Error,
		})
		result.Success = true

	default:
		result.Error = fmt.Errorf("unknown platform event kind %q", event.Kind)
	}

	if result.Error != nil {
		event.MarkAsRejected(result.Error.Error())
	} else {
		event.MarkAsProcessed()
	}
	result.ProcessedAt = *event.ProcessedAt
	return result
}

// HealthCheck checks the upstream SDK sink
func (s *BridgeService) HealthCheck(ctx context.Context) error {
	return s.sdk.HealthCheck(ctx)
}
