// Package router classifies incoming push notifications against the host
// application's lifecycle state and dispatches them to the upstream SDK
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/lifecycle"
	"notification-bridge/internal/metrics"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/models"
)

// StatusResolver resolves a device's authorization status off the caller's goroutine.
// The returned channel must deliver exactly one value.
type StatusResolver interface {
	ResolveAsync(ctx context.Context, deviceID string) <-chan models.AuthorizationStatus
}

// Delivery is a remote notification as handed over by the host platform
type Delivery struct {
	DeviceID       string
	Payload        models.Payload
	LifecycleState string
	// CurrentState, when set, reads the application's live lifecycle label
	// and takes precedence over LifecycleState. Handle reads it once.
	CurrentState func() string
}

func (d Delivery) lifecycleLabel() string {
	if d.CurrentState != nil {
		return d.CurrentState()
	}
	return d.LifecycleState
}

// Acknowledger is the platform's completion handler for a delivered notification
type Acknowledger func(result models.FetchResult)

// Outcome describes how a delivery was handled
type Outcome struct {
	State        models.LifecycleState
	Status       models.AuthorizationStatus
	Target       models.DispatchTarget
	DispatchErr  error
	Acknowledged bool
	AckErr       error
	Duration     time.Duration
}

// Router dispatches notifications to the upstream foreground-push or
// push-opened entry point
type Router struct {
	resolver        StatusResolver
	client          upstream.Client
	store           *debug.Store
	upstreamTimeout time.Duration
	ackTimeout      time.Duration
	logger          *logrus.Logger
}

// Config holds router timeouts
type Config struct {
	UpstreamTimeout time.Duration
	AckTimeout      time.Duration
}

// New creates a new push lifecycle router
func New(resolver StatusResolver, client upstream.Client, store *debug.Store, cfg Config, logger *logrus.Logger) *Router {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = 5 * time.Second
	}
	return &Router{
		resolver:        resolver,
		client:          client,
		store:           store,
		upstreamTimeout: cfg.UpstreamTimeout,
		ackTimeout:      cfg.AckTimeout,
		logger:          logger,
	}
}

// Handle routes a single notification. The lifecycle state is classified
// before any asynchronous work starts, so a later state change cannot alter
// the decision. The notification is acknowledged with FetchResultNoData
// whatever the dispatch outcome. Handle runs to completion even if ctx is
// cancelled; upstream calls are bounded by the upstream timeout instead.
func (r *Router) Handle(ctx context.Context, delivery Delivery, ack Acknowledger) Outcome {
	start := time.Now()

	state := lifecycle.Classify(delivery.lifecycleLabel())
	target := lifecycle.Dispatch(state)

	status := r.resolve(ctx, delivery.DeviceID)

	outcome := Outcome{
		State:  state,
		Status: status,
		Target: target,
	}

	logger := r.logger.WithFields(logrus.Fields{
		"device_id":            delivery.DeviceID,
		"lifecycle_state":      state.String(),
		"authorization_status": status.String(),
		"target":               string(target),
	})

	upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.upstreamTimeout)
	outcome.DispatchErr = r.dispatch(upstreamCtx, target, delivery.Payload, status)
	cancel()

	metrics.NotificationsDispatchedTotal.WithLabelValues(string(target), state.String()).Inc()
	r.recordDispatch(delivery, outcome)

	if outcome.DispatchErr != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues(methodFor(target)).Inc()
		logger.WithError(outcome.DispatchErr).Warn("Upstream dispatch failed")
		r.store.Record("Upstream Dispatch Failed", debug.Fields{
			"target":              debug.String(string(target)),
			"authorizationStatus": debug.String(status.String()),
			"error":               debug.String(outcome.DispatchErr.Error()),
		})
	} else {
		logger.Info("Notification dispatched")
	}

	outcome.Acknowledged, outcome.AckErr = r.acknowledge(ack)
	if outcome.AckErr != nil {
		logger.WithError(outcome.AckErr).Error("Notification acknowledgment did not complete")
	}

	outcome.Duration = time.Since(start)
	return outcome
}

func (r *Router) resolve(ctx context.Context, deviceID string) models.AuthorizationStatus {
	if r.resolver == nil {
		return models.AuthorizationNotDetermined
	}
	status := <-r.resolver.ResolveAsync(ctx, deviceID)
	if !status.IsValid() {
		return models.AuthorizationNotDetermined
	}
	return status
}

func (r *Router) dispatch(ctx context.Context, target models.DispatchTarget, payload models.Payload, status models.AuthorizationStatus) error {
	method := methodFor(target)

	err := upstream.Bounded(ctx, method, func(ctx context.Context) error {
		if target == models.TargetForegroundPush {
			return r.client.ForegroundPush(ctx, payload, status)
		}
		return r.client.PushOpened(ctx, payload, status)
	})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", method, err, bridgeerr.ErrUpstreamDispatch)
	}
	return nil
}

// acknowledge hands FetchResultNoData to the platform, bounded by the ack timeout
func (r *Router) acknowledge(ack Acknowledger) (bool, error) {
	if ack == nil {
		return false, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if recovered := recover(); recovered != nil {
				r.logger.WithField("panic", recovered).Error("Acknowledgment handler panicked")
			}
		}()
		ack(models.FetchResultNoData)
	}()

	timer := time.NewTimer(r.ackTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return true, nil
	case <-timer.C:
		metrics.AcknowledgmentTimeoutsTotal.Inc()
		return false, fmt.Errorf("no completion after %v: %w", r.ackTimeout, bridgeerr.ErrAcknowledgmentTimeout)
	}
}

func (r *Router) recordDispatch(delivery Delivery, outcome Outcome) {
	eventType := "Push Open"
	if outcome.Target == models.TargetForegroundPush {
		eventType = "Foreground Push"
	}

	r.store.Record(eventType, debug.Fields{
		"authorizationStatus": debug.String(outcome.Status.String()),
		"applicationState":    debug.String(outcome.State.String()),
		"userInfo":            debug.FromAny(delivery.Payload),
		"target":              debug.String(string(outcome.Target)),
	})
}

func methodFor(target models.DispatchTarget) string {
	if target == models.TargetForegroundPush {
		return upstream.MethodForegroundPush
	}
	return upstream.MethodPushOpened
}
