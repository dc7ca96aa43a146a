// Package bridgeerr holds the error taxonomy shared by the bridge components
package bridgeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTokenFormat is returned for malformed hex device tokens.
	// It is the only failure surfaced to callers of the registration pipeline.
	ErrInvalidTokenFormat = errors.New("invalid token format")

	// ErrPermissionQuery means the platform settings lookup failed.
	// Callers recover by substituting notDetermined.
	ErrPermissionQuery = errors.New("permission query failed")

	// ErrUpstreamRegistration wraps failures of the upstream registration call
	ErrUpstreamRegistration = errors.New("upstream registration failed")

	// ErrUpstreamDispatch wraps failures of the upstream push entry points
	ErrUpstreamDispatch = errors.New("upstream dispatch failed")

	// ErrRegistrationTimeout means the upstream never invoked its completion callback
	ErrRegistrationTimeout = errors.New("upstream registration timed out")

	// ErrAcknowledgmentTimeout means the platform acknowledgment did not return in time
	ErrAcknowledgmentTimeout = errors.New("notification acknowledgment timed out")
)

// PanicError converts a recovered panic from an upstream call into an error
type PanicError struct {
	Op    string
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}
