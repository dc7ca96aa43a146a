package models

import "testing"

func TestParseAuthorizationStatus(t *testing.T) {
	tests := []struct {
		label    string
		expected AuthorizationStatus
	}{
		{"authorized", AuthorizationAuthorized},
		{"AUTHORIZED", AuthorizationAuthorized},
		{"denied", AuthorizationDenied},
		{"notDetermined", AuthorizationNotDetermined},
		{"notdetermined", AuthorizationNotDetermined},
		{"provisional", AuthorizationProvisional},
		{" ephemeral ", AuthorizationEphemeral},
		{"", AuthorizationNotDetermined},
		{"granted", AuthorizationNotDetermined},
	}

	for _, test := range tests {
		result := ParseAuthorizationStatus(test.label)
		if result != test.expected {
			t.Errorf("Expected label '%s' to parse as '%s', got '%s'", test.label, test.expected, result)
		}
	}
}

func TestAuthorizationStatusString(t *testing.T) {
	if AuthorizationProvisional.String() != "provisional" {
		t.Errorf("Expected 'provisional', got '%s'", AuthorizationProvisional.String())
	}

	// Unknown values never leak out as labels
	if AuthorizationStatus("bogus").String() != "notDetermined" {
		t.Errorf("Expected unknown status to render as 'notDetermined', got '%s'", AuthorizationStatus("bogus").String())
	}
}

func TestLifecycleStateString(t *testing.T) {
	tests := []struct {
		state    LifecycleState
		expected string
	}{
		{LifecycleActive, "active"},
		{LifecycleInactive, "inactive"},
		{LifecycleBackground, "background"},
		{LifecycleUnknown, "unknown"},
		{LifecycleState(42), "unknown"},
	}

	for _, test := range tests {
		if result := test.state.String(); result != test.expected {
			t.Errorf("Expected state %d to be '%s', got '%s'", test.state, test.expected, result)
		}
	}
}

func TestNewPlatformEvent(t *testing.T) {
	event := NewPlatformEvent(KindToken, "device-1")

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}

	if event.Kind != KindToken {
		t.Errorf("Expected Kind %s, got %s", KindToken, event.Kind)
	}

	if event.Status != StatusPending {
		t.Errorf("Expected Status %s, got %s", StatusPending, event.Status)
	}

	if event.CreatedAt.IsZero() {
		t.Error("CreatedAt should not be zero")
	}

	if event.HasAuthorizationStatus() {
		t.Error("New event should not carry an authorization status")
	}
}

func TestPlatformEvent_MarkAsProcessed(t *testing.T) {
	event := NewPlatformEvent(KindNotification, "device-1")
	event.MarkAsProcessed()

	if event.Status != StatusProcessed {
		t.Errorf("Expected Status %s, got %s", StatusProcessed, event.Status)
	}

	if event.ProcessedAt == nil {
		t.Error("ProcessedAt should be set when marked as processed")
	}
}

func TestPlatformEvent_MarkAsRejected(t *testing.T) {
	event := NewPlatformEvent(KindToken, "device-1")
	event.MarkAsRejected("invalid token format")

	if event.Status != StatusRejected {
		t.Errorf("Expected Status %s, got %s", StatusRejected, event.Status)
	}

	if event.Error != "invalid token format" {
		t.Errorf("Expected Error 'invalid token format', got %s", event.Error)
	}
}

func TestDeviceSettings_AnyGranted(t *testing.T) {
	settings := &DeviceSettings{}
	if settings.AnyGranted() {
		t.Error("Settings with nothing granted should not report granted")
	}

	settings.Sound = true
	if !settings.AnyGranted() {
		t.Error("Settings with sound granted should report granted")
	}
}

func TestIdentifyRequest_IsEmpty(t *testing.T) {
	req := &IdentifyRequest{}
	if !req.IsEmpty() {
		t.Error("Request without identifiers should be empty")
	}

	req.CustomIdentifiers = map[string]string{"loyalty": "gold"}
	if req.IsEmpty() {
		t.Error("Request with a custom identifier should not be empty")
	}
}
