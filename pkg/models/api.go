package models

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NotificationRequest is a remote notification delivered by the host platform
type NotificationRequest struct {
	DeviceID       string  `json:"device_id" binding:"required"`
	LifecycleState string  `json:"lifecycle_state"`
	Payload        Payload `json:"payload"`
}

// TokenRequest is a device token delivered by the host platform
type TokenRequest struct {
	DeviceID            string `json:"device_id" binding:"required"`
	Token               string `json:"token" binding:"required"`
	AuthorizationStatus string `json:"authorization_status,omitempty"`
	WithCallback        bool   `json:"with_callback,omitempty"`
}

// RegistrationErrorRequest reports that the platform failed to issue a token
type RegistrationErrorRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Error    string `json:"error"`
}

// SettingsRequest carries the platform notification settings of a device
type SettingsRequest struct {
	Platform            string `json:"platform"`
	Alert               bool   `json:"alert"`
	Badge               bool   `json:"badge"`
	Sound               bool   `json:"sound"`
	AuthorizationStatus int    `json:"authorization_status"`
}

// TriggerRequest asks the upstream SDK to show a creative
type TriggerRequest struct {
	CreativeID string `json:"creative_id,omitempty"`
}

// IdentifyRequest carries user identifiers for the upstream SDK
type IdentifyRequest struct {
	Phone             string            `json:"phone,omitempty"`
	Email             string            `json:"email,omitempty"`
	KlaviyoID         string            `json:"klaviyo_id,omitempty"`
	ShopifyID         string            `json:"shopify_id,omitempty"`
	ClientUserID      string            `json:"client_user_id,omitempty"`
	CustomIdentifiers map[string]string `json:"custom_identifiers,omitempty"`
}

// IsEmpty reports whether no identifier was supplied
func (r *IdentifyRequest) IsEmpty() bool {
	return r.Phone == "" && r.Email == "" && r.KlaviyoID == "" && r.ShopifyID == "" &&
		r.ClientUserID == "" && len(r.CustomIdentifiers) == 0
}
