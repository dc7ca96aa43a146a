// Package lifecycle classifies host application lifecycle labels and maps
// them to notification dispatch targets
package lifecycle

import (
	"strings"

	"notification-bridge/pkg/models"
)

// Classify maps a platform lifecycle label to a LifecycleState.
// Unrecognized labels map to LifecycleUnknown.
func Classify(raw string) models.LifecycleState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "active", "resumed", "foreground":
		return models.LifecycleActive
	case "inactive":
		return models.LifecycleInactive
	case "background", "paused", "detached":
		return models.LifecycleBackground
	default:
		return models.LifecycleUnknown
	}
}

// Dispatch returns the upstream entry point for a notification received in
// the given state. Only an active app gets the foreground handler; every
// other state, unknown included, is attributed as a push open.
func Dispatch(state models.LifecycleState) models.DispatchTarget {
	switch state {
	case models.LifecycleActive:
		return models.TargetForegroundPush
	case models.LifecycleInactive, models.LifecycleBackground:
		return models.TargetPushOpened
	default:
		return models.TargetPushOpened
	}
}
