// Package upstream defines the contract of the marketing SDK the bridge
// reports to, plus a Kafka-backed sink and a configurable mock
package upstream

import (
	"context"
	"time"

	"notification-bridge/pkg/models"
)

// Method names of the upstream entry points
const (
	MethodRegisterDeviceToken = "registerDeviceToken"
	MethodForegroundPush      = "foregroundPush"
	MethodPushOpened          = "pushOpened"
	MethodRegularOpen         = "regularOpen"
	MethodRecordEvent         = "recordEvent"
	MethodIdentify            = "identify"
	MethodClearUser           = "clearUser"
	MethodTriggerCreative     = "triggerCreative"
)

// RegistrationResponse is what the upstream hands back after a token registration
type RegistrationResponse struct {
	MessageID  string    `json:"message_id"`
	Partition  int32     `json:"partition"`
	Offset     int64     `json:"offset"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// RegistrationCallback receives the outcome of a callback-style registration.
// Implementations are expected to call it once, but callers must not rely on it.
type RegistrationCallback func(resp *RegistrationResponse, err error)

// Client is the push-facing contract of the upstream SDK
type Client interface {
	Name() string
	RegisterDeviceToken(ctx context.Context, token []byte, status models.AuthorizationStatus) error
	RegisterDeviceTokenWithCallback(ctx context.Context, token []byte, status models.AuthorizationStatus, callback RegistrationCallback) error
	ForegroundPush(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error
	PushOpened(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error
	RegularOpen(ctx context.Context, status models.AuthorizationStatus) error
	HealthCheck(ctx context.Context) error
}

// TrackedEvent is a commerce or custom event forwarded to the upstream tracker
type TrackedEvent struct {
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Tracker is the commerce-facing contract of the upstream SDK
type Tracker interface {
	RecordEvent(ctx context.Context, event TrackedEvent) error
	Identify(ctx context.Context, identifiers map[string]interface{}) error
	ClearUser(ctx context.Context) error
	TriggerCreative(ctx context.Context, creativeID string) error
}

// SDK is the full upstream surface
type SDK interface {
	Client
	Tracker
}
