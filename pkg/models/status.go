// Package models defines the data structures used throughout the notification bridge
package models

import "strings"

// AuthorizationStatus is the user's notification permission decision
type AuthorizationStatus string

const (
	AuthorizationAuthorized    AuthorizationStatus = "authorized"
	AuthorizationDenied        AuthorizationStatus = "denied"
	AuthorizationNotDetermined AuthorizationStatus = "notDetermined"
	AuthorizationProvisional   AuthorizationStatus = "provisional"
	AuthorizationEphemeral     AuthorizationStatus = "ephemeral"
)

// ParseAuthorizationStatus maps a platform label to an AuthorizationStatus.
// Matching is case-insensitive and unknown labels map to notDetermined.
func ParseAuthorizationStatus(label string) AuthorizationStatus {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "authorized":
		return AuthorizationAuthorized
	case "denied":
		return AuthorizationDenied
	case "provisional":
		return AuthorizationProvisional
	case "ephemeral":
		return AuthorizationEphemeral
	default:
		return AuthorizationNotDetermined
	}
}

// IsValid reports whether s is one of the five known statuses
func (s AuthorizationStatus) IsValid() bool {
	switch s {
	case AuthorizationAuthorized, AuthorizationDenied, AuthorizationNotDetermined,
		AuthorizationProvisional, AuthorizationEphemeral:
		return true
	}
	return false
}

// String returns the status label
func (s AuthorizationStatus) String() string {
	if !s.IsValid() {
		return string(AuthorizationNotDetermined)
	}
	return string(s)
}

// LifecycleState is the host application's foreground/background status
type LifecycleState int

const (
	LifecycleUnknown LifecycleState = iota
	LifecycleActive
	LifecycleInactive
	LifecycleBackground
)

// String returns string representation of the lifecycle state
func (s LifecycleState) String() string {
	switch s {
	case LifecycleActive:
		return "active"
	case LifecycleInactive:
		return "inactive"
	case LifecycleBackground:
		return "background"
	default:
		return "unknown"
	}
}

// DispatchTarget names the upstream entry point a notification is routed to
type DispatchTarget string

const (
	TargetForegroundPush DispatchTarget = "foreground-push"
	TargetPushOpened     DispatchTarget = "push-opened"
)

// FetchResult is the acknowledgment handed back to the platform after a
// remote notification has been handled
type FetchResult string

const (
	FetchResultNewData FetchResult = "newData"
	FetchResultNoData  FetchResult = "noData"
	FetchResultFailed  FetchResult = "failed"
)

// Payload is an opaque notification key/value bag forwarded to the upstream SDK
type Payload map[string]interface{}
