package models

import (
	"time"

	"github.com/google/uuid"
)

// PlatformEventKind identifies what the host platform delivered
type PlatformEventKind string

const (
	KindNotification      PlatformEventKind = "notification"
	KindToken             PlatformEventKind = "token"
	KindRegistrationError PlatformEventKind = "registration_error"
)

// PlatformEventStatus represents the processing status of a platform event
type PlatformEventStatus string

const (
	StatusPending   PlatformEventStatus = "pending"
	StatusProcessed PlatformEventStatus = "processed"
	StatusRejected  PlatformEventStatus = "rejected"
)

// PlatformEvent is a notification or token delivery forwarded from a device
type PlatformEvent struct {
	ID                  string              `json:"id"`
	Kind                PlatformEventKind   `json:"kind"`
	DeviceID            string              `json:"device_id"`
	Payload             Payload             `json:"payload,omitempty"`
	LifecycleState      string              `json:"lifecycle_state,omitempty"`
	Token               string              `json:"token,omitempty"`
	AuthorizationStatus string              `json:"authorization_status,omitempty"`
	WithCallback        bool                `json:"with_callback,omitempty"`
	Error               string              `json:"error,omitempty"`
	Status              PlatformEventStatus `json:"status"`
	CreatedAt           time.Time           `json:"created_at"`
	ProcessedAt         *time.Time          `json:"processed_at,omitempty"`
}

// NewPlatformEvent creates a pending platform event
func NewPlatformEvent(kind PlatformEventKind, deviceID string) *PlatformEvent {
	return &PlatformEvent{
		ID:        uuid.New().String(),
		Kind:      kind,
		DeviceID:  deviceID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// HasAuthorizationStatus reports whether the device supplied a status label
func (e *PlatformEvent) HasAuthorizationStatus() bool {
	return e.AuthorizationStatus != ""
}

// MarkAsProcessed marks the event as handled
func (e *PlatformEvent) MarkAsProcessed() {
	now := time.Now()
	e.Status = StatusProcessed
	e.ProcessedAt = &now
}

// MarkAsRejected marks the event as rejected with a reason
func (e *PlatformEvent) MarkAsRejected(reason string) {
	now := time.Now()
	e.Status = StatusRejected
	e.Error = reason
	e.ProcessedAt = &now
}

// ProcessingResult represents the result of processing a platform event
type ProcessingResult struct {
	EventID     string
	DeviceID    string
	Kind        PlatformEventKind
	Success     bool
	Target      DispatchTarget
	Error       error
	ProcessedAt time.Time
	Duration    time.Duration
}
