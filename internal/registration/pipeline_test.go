package registration

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/models"
)

const validToken = "1a2b3c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f809"

type fixedResolver models.AuthorizationStatus

func (f fixedResolver) Resolve(ctx context.Context, deviceID string) models.AuthorizationStatus {
	return models.AuthorizationStatus(f)
}

func newTestPipeline(client upstream.Client, timeout time.Duration) (*Pipeline, *debug.Store) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := debug.NewStore(debug.Options{EnableDebugger: true, DebugBuild: true, Logger: logger})
	p := New(client, fixedResolver(models.AuthorizationDenied), store, Config{Timeout: timeout, UpstreamTimeout: time.Second}, logger)
	return p, store
}

func eventTypes(store *debug.Store) []string {
	var types []string
	for _, event := range store.Events() {
		types = append(types, event.EventType)
	}
	return types
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("registration never completed")
		return Result{}
	}
}

func TestRegisterForwardsTokenAndFiresRegularOpen(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	p, store := newTestPipeline(client, time.Second)

	err := p.Register(context.Background(), "<"+validToken[:8]+" "+validToken[8:]+">", models.AuthorizationAuthorized)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, upstream.MethodRegisterDeviceToken, calls[0].Method)
	assert.Len(t, calls[0].Token, 32)
	assert.Equal(t, byte(0x1a), calls[0].Token[0])
	assert.Equal(t, upstream.MethodRegularOpen, calls[1].Method)
	assert.Equal(t, models.AuthorizationAuthorized, calls[1].Status)

	assert.Equal(t, []string{"Device Token Registered", "Regular Open Event"}, eventTypes(store))
	assert.True(t, calls[1].At.After(calls[0].At) || calls[1].At.Equal(calls[0].At))
}

func TestRegisterRejectsInvalidToken(t *testing.T) {
	for _, raw := range []string{"", "abc", "zz11", "<>"} {
		client := upstream.NewMockClient("sdk", 1.0, 0, 0)
		p, store := newTestPipeline(client, time.Second)

		err := p.Register(context.Background(), raw, models.AuthorizationAuthorized)
		assert.ErrorIs(t, err, bridgeerr.ErrInvalidTokenFormat, raw)
		assert.Empty(t, client.Calls(), raw)
		assert.Zero(t, store.Len(), raw)
	}
}

func TestRegisterUpstreamFailureStillFiresRegularOpen(t *testing.T) {
	client := upstream.NewMockClient("sdk", 0.0, 0, 0)
	p, store := newTestPipeline(client, time.Second)

	require.NoError(t, p.Register(context.Background(), validToken, models.AuthorizationDenied))

	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
	assert.Equal(t, []string{"Device Token Registered", "Upstream Registration Failed", "Regular Open Event"}, eventTypes(store))
}

func TestRegisterUpstreamPanicIsAbsorbed(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	client.SetPanicOn(upstream.MethodRegisterDeviceToken, true)
	p, _ := newTestPipeline(client, time.Second)

	require.NoError(t, p.Register(context.Background(), validToken, models.AuthorizationAuthorized))
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
}

func TestRegisterWithCallbackCompletesOnce(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	p, store := newTestPipeline(client, time.Second)
	results := make(chan Result, 4)

	err := p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationProvisional, func(r Result) {
		results <- r
	})
	require.NoError(t, err)

	result := waitResult(t, results)
	assert.NoError(t, result.Err)
	require.NotNil(t, result.Response)
	assert.NotEmpty(t, result.Response.MessageID)

	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
	calls := client.Calls()
	assert.Equal(t, models.AuthorizationProvisional, calls[len(calls)-1].Status)
	assert.Equal(t, "Device Token Registered (with callback)", eventTypes(store)[0])
}

func TestRegisterWithCallbackIgnoresDuplicateCallbacks(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	client.SetCallbackMode(upstream.CallbackTwice)
	p, _ := newTestPipeline(client, time.Second)

	var completions int32
	results := make(chan Result, 4)
	require.NoError(t, p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationAuthorized, func(r Result) {
		atomic.AddInt32(&completions, 1)
		results <- r
	}))

	waitResult(t, results)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
}

func TestRegisterWithCallbackTimesOut(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	client.SetCallbackMode(upstream.CallbackNever)
	p, store := newTestPipeline(client, 30*time.Millisecond)
	results := make(chan Result, 1)

	require.NoError(t, p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationAuthorized, func(r Result) {
		results <- r
	}))

	result := waitResult(t, results)
	assert.ErrorIs(t, result.Err, bridgeerr.ErrRegistrationTimeout)
	assert.Nil(t, result.Response)
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
	assert.Contains(t, eventTypes(store), "Upstream Registration Failed")
}

func TestRegisterWithCallbackSyncError(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	client.SetCallbackMode(upstream.CallbackSyncError)
	p, _ := newTestPipeline(client, time.Second)
	results := make(chan Result, 1)

	require.NoError(t, p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationDenied, func(r Result) {
		results <- r
	}))

	result := waitResult(t, results)
	assert.ErrorIs(t, result.Err, bridgeerr.ErrUpstreamRegistration)
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
}

func TestRegisterWithCallbackUpstreamError(t *testing.T) {
	client := upstream.NewMockClient("sdk", 0.0, 0, 0)
	p, _ := newTestPipeline(client, time.Second)
	results := make(chan Result, 1)

	require.NoError(t, p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationAuthorized, func(r Result) {
		results <- r
	}))

	result := waitResult(t, results)
	assert.ErrorIs(t, result.Err, bridgeerr.ErrUpstreamRegistration)
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
}

func TestRegisterWithCallbackInvalidToken(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	p, _ := newTestPipeline(client, time.Second)

	called := false
	err := p.RegisterWithCallback(context.Background(), "xyz", models.AuthorizationAuthorized, func(Result) { called = true })
	assert.True(t, errors.Is(err, bridgeerr.ErrInvalidTokenFormat))
	assert.False(t, called)
	assert.Empty(t, client.Calls())
}

func TestHandleRegistrationError(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	p, store := newTestPipeline(client, time.Second)

	status := p.HandleRegistrationError(context.Background(), "device-1", errors.New("no valid aps-environment"))

	assert.Equal(t, models.AuthorizationDenied, status)
	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, upstream.MethodRegularOpen, calls[0].Method)
	assert.Equal(t, models.AuthorizationDenied, calls[0].Status)
	assert.Equal(t, []string{"Regular Open Event"}, eventTypes(store))
}

// stallingClient blocks in the registration entry points until released
// and never looks at ctx
type stallingClient struct {
	*upstream.MockClient
	release chan struct{}
}

func (c *stallingClient) RegisterDeviceToken(ctx context.Context, token []byte, status models.AuthorizationStatus) error {
	<-c.release
	return nil
}

func (c *stallingClient) RegisterDeviceTokenWithCallback(ctx context.Context, token []byte, status models.AuthorizationStatus, callback upstream.RegistrationCallback) error {
	<-c.release
	callback(&upstream.RegistrationResponse{MessageID: "late"}, nil)
	return nil
}

func newStallingClient() *stallingClient {
	return &stallingClient{MockClient: upstream.NewMockClient("sdk", 1.0, 0, 0), release: make(chan struct{})}
}

func TestRegisterWithCallbackTimesOutWhileUpstreamStalls(t *testing.T) {
	client := newStallingClient()
	p, store := newTestPipeline(client, 50*time.Millisecond)
	results := make(chan Result, 4)

	start := time.Now()
	require.NoError(t, p.RegisterWithCallback(context.Background(), validToken, models.AuthorizationAuthorized, func(r Result) {
		results <- r
	}))
	assert.Less(t, time.Since(start), time.Second, "registration must not wait for the upstream")

	result := waitResult(t, results)
	assert.ErrorIs(t, result.Err, bridgeerr.ErrRegistrationTimeout)
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
	assert.Contains(t, eventTypes(store), "Upstream Registration Failed")

	// A late callback after the upstream unblocks is ignored
	close(client.release)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, results)
	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
}

func TestRegisterBoundedWhileUpstreamStalls(t *testing.T) {
	client := newStallingClient()
	defer close(client.release)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := debug.NewStore(debug.Options{EnableDebugger: true, DebugBuild: true, Logger: logger})
	p := New(client, fixedResolver(models.AuthorizationDenied), store, Config{Timeout: time.Second, UpstreamTimeout: 50 * time.Millisecond}, logger)

	done := make(chan error, 1)
	go func() {
		done <- p.Register(context.Background(), validToken, models.AuthorizationAuthorized)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Register did not return while the upstream was stalled")
	}

	assert.Equal(t, 1, client.CallCount(upstream.MethodRegularOpen))
	assert.Equal(t, []string{"Device Token Registered", "Upstream Registration Failed", "Regular Open Event"}, eventTypes(store))
}
