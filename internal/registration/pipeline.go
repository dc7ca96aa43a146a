// Package registration forwards device push tokens to the upstream SDK and
// follows every attempt with exactly one regular-open signal
package registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/metrics"
	"notification-bridge/internal/token"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/models"
)

// Registration outcomes, used as metric labels
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeTimeout       = "timeout"
	OutcomeInvalidToken  = "invalid_token"
)

// StatusResolver resolves a device's authorization status
type StatusResolver interface {
	Resolve(ctx context.Context, deviceID string) models.AuthorizationStatus
}

// Result is handed to the completion handler of a callback-style registration
type Result struct {
	Response *upstream.RegistrationResponse
	Err      error
}

// Config holds pipeline timeouts
type Config struct {
	// Timeout bounds how long a callback-style registration waits for the upstream callback
	Timeout time.Duration
	// UpstreamTimeout bounds each plain upstream call
	UpstreamTimeout time.Duration
}

// Pipeline registers device tokens upstream
type Pipeline struct {
	client          upstream.Client
	resolver        StatusResolver
	store           *debug.Store
	timeout         time.Duration
	upstreamTimeout time.Duration
	logger          *logrus.Logger
}

// New creates a new token registration pipeline
func New(client upstream.Client, resolver StatusResolver, store *debug.Store, cfg Config, logger *logrus.Logger) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 10 * time.Second
	}
	return &Pipeline{
		client:          client,
		resolver:        resolver,
		store:           store,
		timeout:         cfg.Timeout,
		upstreamTimeout: cfg.UpstreamTimeout,
		logger:          logger,
	}
}

// Register forwards a hex token upstream and then fires regular-open.
// Only ErrInvalidTokenFormat is returned; upstream failures are logged
// and recorded.
func (p *Pipeline) Register(ctx context.Context, hexToken string, status models.AuthorizationStatus) error {
	data, err := p.decode(hexToken)
	if err != nil {
		return err
	}

	p.store.Record("Device Token Registered", debug.Fields{
		"token":               debug.String(token.Preview(hexToken)),
		"authorizationStatus": debug.String(status.String()),
	})

	upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.upstreamTimeout)
	err = p.callRegister(upstreamCtx, data, status)
	cancel()

	if err != nil {
		p.registrationFailed(hexToken, status, err)
	} else {
		metrics.TokenRegistrationsTotal.WithLabelValues(OutcomeSuccess).Inc()
		p.logger.WithField("token", token.Preview(hexToken)).Info("Device token registered")
	}

	p.regularOpen(ctx, status, "token_registration")
	return nil
}

// RegisterWithCallback forwards a hex token through the upstream's callback
// entry point. The attempt completes on the first of: the callback fires,
// the upstream returns an error or panics, or the registration timeout
// elapses, counted from before the upstream is entered. Completion fires
// regular-open once and calls onComplete once; anything after that is
// ignored. RegisterWithCallback does not wait for the upstream or for
// completion.
func (p *Pipeline) RegisterWithCallback(ctx context.Context, hexToken string, status models.AuthorizationStatus, onComplete func(Result)) error {
	data, err := p.decode(hexToken)
	if err != nil {
		return err
	}

	p.store.Record("Device Token Registered (with callback)", debug.Fields{
		"token":               debug.String(token.Preview(hexToken)),
		"authorizationStatus": debug.String(status.String()),
	})

	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	done := make(chan struct{})
	var once sync.Once

	complete := func(result Result) {
		once.Do(func() {
			defer close(done)
			defer cancel()

			if result.Err != nil {
				p.registrationFailed(hexToken, status, result.Err)
			} else {
				metrics.TokenRegistrationsTotal.WithLabelValues(OutcomeSuccess).Inc()
				p.logger.WithField("token", token.Preview(hexToken)).Info("Device token registered")
			}

			p.regularOpen(ctx, status, "token_registration")

			if onComplete != nil {
				onComplete(result)
			}
		})
	}

	callback := func(resp *upstream.RegistrationResponse, err error) {
		if err != nil {
			complete(Result{Response: resp, Err: fmt.Errorf("%v: %w", err, bridgeerr.ErrUpstreamRegistration)})
			return
		}
		complete(Result{Response: resp})
	}

	// The timer is armed before the upstream is entered so a call that never
	// returns still completes the attempt.
	timer := time.NewTimer(p.timeout)
	go func() {
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			complete(Result{Err: fmt.Errorf("no callback after %v: %w", p.timeout, bridgeerr.ErrRegistrationTimeout)})
		}
	}()

	go func() {
		err := p.callRegisterWithCallback(attemptCtx, data, status, callback)
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded):
			complete(Result{Err: fmt.Errorf("no callback after %v: %w", p.timeout, bridgeerr.ErrRegistrationTimeout)})
		default:
			complete(Result{Err: err})
		}
	}()

	return nil
}

// HandleRegistrationError handles the platform reporting that it could not
// obtain a device token. The device's status is resolved and regular-open
// fires once with it.
func (p *Pipeline) HandleRegistrationError(ctx context.Context, deviceID string, regErr error) models.AuthorizationStatus {
	status := models.AuthorizationNotDetermined
	if p.resolver != nil {
		status = p.resolver.Resolve(ctx, deviceID)
	}

	p.logger.WithFields(logrus.Fields{
		"device_id":            deviceID,
		"authorization_status": status.String(),
	}).WithError(regErr).Warn("Platform failed to register for remote notifications")

	p.regularOpen(ctx, status, "registration_error")
	return status
}

func (p *Pipeline) decode(hexToken string) ([]byte, error) {
	data, err := token.Decode(hexToken)
	if err != nil {
		metrics.TokenRegistrationsTotal.WithLabelValues(OutcomeInvalidToken).Inc()
		p.logger.WithError(err).Warn("Rejected device token")
		return nil, err
	}
	return data, nil
}

func (p *Pipeline) callRegister(ctx context.Context, data []byte, status models.AuthorizationStatus) error {
	err := upstream.Bounded(ctx, upstream.MethodRegisterDeviceToken, func(ctx context.Context) error {
		return p.client.RegisterDeviceToken(ctx, data, status)
	})
	if err != nil {
		return fmt.Errorf("%v: %w", err, bridgeerr.ErrUpstreamRegistration)
	}
	return nil
}

// callRegisterWithCallback returns nil once the upstream has accepted the
// call; the outcome then arrives through callback.
func (p *Pipeline) callRegisterWithCallback(ctx context.Context, data []byte, status models.AuthorizationStatus, callback upstream.RegistrationCallback) error {
	err := upstream.Bounded(ctx, upstream.MethodRegisterDeviceToken, func(ctx context.Context) error {
		return p.client.RegisterDeviceTokenWithCallback(ctx, data, status, callback)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%v: %w", err, bridgeerr.ErrUpstreamRegistration)
	}
	return nil
}

func (p *Pipeline) registrationFailed(hexToken string, status models.AuthorizationStatus, err error) {
	outcome := OutcomeUpstreamError
	if errors.Is(err, bridgeerr.ErrRegistrationTimeout) {
		outcome = OutcomeTimeout
	}
	metrics.TokenRegistrationsTotal.WithLabelValues(outcome).Inc()
	metrics.UpstreamFailuresTotal.WithLabelValues(upstream.MethodRegisterDeviceToken).Inc()

	p.logger.WithError(err).WithFields(logrus.Fields{
		"token":                token.Preview(hexToken),
		"authorization_status": status.String(),
	}).Warn("Upstream token registration failed")

	p.store.Record("Upstream Registration Failed", debug.Fields{
		"token":               debug.String(token.Preview(hexToken)),
		"authorizationStatus": debug.String(status.String()),
		"error":               debug.String(err.Error()),
	})
}

// regularOpen reports a regular app open. Upstream failures are absorbed.
func (p *Pipeline) regularOpen(ctx context.Context, status models.AuthorizationStatus, source string) {
	upstreamCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.upstreamTimeout)
	defer cancel()

	err := upstream.Bounded(upstreamCtx, upstream.MethodRegularOpen, func(ctx context.Context) error {
		return p.client.RegularOpen(ctx, status)
	})

	metrics.RegularOpensTotal.Inc()
	p.store.Record("Regular Open Event", debug.Fields{
		"authorizationStatus": debug.String(status.String()),
		"source":              debug.String(source),
	})

	if err != nil {
		metrics.UpstreamFailuresTotal.WithLabelValues(upstream.MethodRegularOpen).Inc()
		p.logger.WithError(err).Warn("Upstream regular open failed")
		return
	}
	p.logger.WithField("authorization_status", status.String()).Debug("Regular open sent")
}
