package models

import "time"

// DeviceSettings is the platform notification settings reported by a device
type DeviceSettings struct {
	DeviceID            string    `json:"device_id"`
	Platform            string    `json:"platform"` // ios, android
	Alert               bool      `json:"alert"`
	Badge               bool      `json:"badge"`
	Sound               bool      `json:"sound"`
	AuthorizationStatus int       `json:"authorization_status"` // platform raw value, 0 = not determined
	UpdatedAt           time.Time `json:"updated_at"`
}

// NotDeterminedRaw is the raw platform authorization value meaning the user
// has not been asked yet
const NotDeterminedRaw = 0

// AnyGranted reports whether any of alert, badge or sound is granted
func (s *DeviceSettings) AnyGranted() bool {
	return s.Alert || s.Badge || s.Sound
}
