package router

import (
	"context"
	"io"
	"sync"
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

type stubResolver struct {
	status  models.AuthorizationStatus
	release chan struct{}
	started chan struct{}
}

func (s *stubResolver) ResolveAsync(ctx context.Context, deviceID string) <-chan models.AuthorizationStatus {
	out := make(chan models.AuthorizationStatus, 1)
	go func() {
		if s.started != nil {
			close(s.started)
		}
		if s.release != nil {
			<-s.release
		}
		out <- s.status
	}()
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestRouter(resolver StatusResolver, client upstream.Client, ackTimeout time.Duration) (*Router, *debug.Store) {
	store := debug.NewStore(debug.Options{EnableDebugger: true, DebugBuild: true, Logger: quietLogger()})
	r := New(resolver, client, store, Config{UpstreamTimeout: time.Second, AckTimeout: ackTimeout}, quietLogger())
	return r, store
}

type ackRecorder struct {
	mu      sync.Mutex
	results []models.FetchResult
}

func (a *ackRecorder) ack(result models.FetchResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, result)
}

func (a *ackRecorder) all() []models.FetchResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.FetchResult(nil), a.results...)
}

func TestActiveNotificationGoesToForegroundPush(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	r, store := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, time.Second)
	acks := &ackRecorder{}

	outcome := r.Handle(context.Background(), Delivery{
		DeviceID:       "device-1",
		LifecycleState: "active",
		Payload:        models.Payload{"id": "42"},
	}, acks.ack)

	assert.Equal(t, models.TargetForegroundPush, outcome.Target)
	assert.Equal(t, models.LifecycleActive, outcome.State)
	assert.NoError(t, outcome.DispatchErr)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, upstream.MethodForegroundPush, calls[0].Method)
	assert.Equal(t, models.Payload{"id": "42"}, calls[0].Payload)
	assert.Equal(t, models.AuthorizationAuthorized, calls[0].Status)
	assert.Equal(t, 0, client.CallCount(upstream.MethodPushOpened))

	assert.Equal(t, []models.FetchResult{models.FetchResultNoData}, acks.all())
	assert.True(t, outcome.Acknowledged)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Foreground Push", events[0].EventType)
	assert.Equal(t, "active", events[0].Data["applicationState"].String())
}

func TestNonActiveStatesGoToPushOpened(t *testing.T) {
	for _, label := range []string{"background", "inactive", "unknown", "", "bogus"} {
		t.Run(label, func(t *testing.T) {
			client := upstream.NewMockClient("sdk", 1.0, 0, 0)
			r, store := newTestRouter(&stubResolver{status: models.AuthorizationDenied}, client, time.Second)

			outcome := r.Handle(context.Background(), Delivery{DeviceID: "device-1", LifecycleState: label}, nil)

			assert.Equal(t, models.TargetPushOpened, outcome.Target)
			assert.Equal(t, 1, client.CallCount(upstream.MethodPushOpened))
			assert.Equal(t, 0, client.CallCount(upstream.MethodForegroundPush))
			assert.False(t, outcome.Acknowledged)
			assert.NoError(t, outcome.AckErr)
			assert.Equal(t, "Push Open", store.Events()[0].EventType)
		})
	}
}

func TestLifecycleCapturedBeforeResolution(t *testing.T) {
	var platformState atomic.Value
	platformState.Store("active")
	var reads int32

	resolver := &stubResolver{
		status:  models.AuthorizationAuthorized,
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	r, store := newTestRouter(resolver, client, time.Second)

	done := make(chan Outcome, 1)
	go func() {
		done <- r.Handle(context.Background(), Delivery{
			DeviceID: "device-1",
			CurrentState: func() string {
				atomic.AddInt32(&reads, 1)
				return platformState.Load().(string)
			},
		}, nil)
	}()

	<-resolver.started
	// The app goes to the background while the permission query is in flight
	platformState.Store("background")
	close(resolver.release)

	outcome := <-done
	assert.Equal(t, int32(1), atomic.LoadInt32(&reads))
	assert.Equal(t, models.LifecycleActive, outcome.State)
	assert.Equal(t, models.TargetForegroundPush, outcome.Target)
	assert.Equal(t, 1, client.CallCount(upstream.MethodForegroundPush))
	assert.Equal(t, 0, client.CallCount(upstream.MethodPushOpened))
	assert.Equal(t, "active", store.Events()[0].Data["applicationState"].String())
}

func TestCurrentStateTakesPrecedence(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	r, _ := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, time.Second)

	outcome := r.Handle(context.Background(), Delivery{
		DeviceID:       "device-1",
		LifecycleState: "active",
		CurrentState:   func() string { return "background" },
	}, nil)

	assert.Equal(t, models.TargetPushOpened, outcome.Target)
}

func TestUpstreamFailureStillAcknowledges(t *testing.T) {
	client := upstream.NewMockClient("sdk", 0.0, 0, 0)
	r, store := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, time.Second)
	acks := &ackRecorder{}

	outcome := r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "background"}, acks.ack)

	assert.ErrorIs(t, outcome.DispatchErr, bridgeerr.ErrUpstreamDispatch)
	assert.Equal(t, []models.FetchResult{models.FetchResultNoData}, acks.all())

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Push Open", events[0].EventType)
	assert.Equal(t, "Upstream Dispatch Failed", events[1].EventType)
}

func TestUpstreamPanicIsAbsorbed(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	client.SetPanicOn(upstream.MethodForegroundPush, true)
	r, _ := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, time.Second)
	acks := &ackRecorder{}

	outcome := r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "active"}, acks.ack)

	assert.ErrorIs(t, outcome.DispatchErr, bridgeerr.ErrUpstreamDispatch)
	assert.Len(t, acks.all(), 1)
}

func TestResolverFallback(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)

	r, _ := newTestRouter(nil, client, time.Second)
	outcome := r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "active"}, nil)
	assert.Equal(t, models.AuthorizationNotDetermined, outcome.Status)

	r, _ = newTestRouter(&stubResolver{status: models.AuthorizationStatus("garbage")}, client, time.Second)
	outcome = r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "active"}, nil)
	assert.Equal(t, models.AuthorizationNotDetermined, outcome.Status)

	assert.Equal(t, 2, client.CallCount(upstream.MethodForegroundPush))
}

func TestAcknowledgmentTimeout(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 0, 0)
	r, _ := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, 20*time.Millisecond)

	block := make(chan struct{})
	defer close(block)

	outcome := r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "inactive"}, func(models.FetchResult) {
		<-block
	})

	assert.ErrorIs(t, outcome.AckErr, bridgeerr.ErrAcknowledgmentTimeout)
	assert.False(t, outcome.Acknowledged)
	assert.NoError(t, outcome.DispatchErr)
	assert.Equal(t, 1, client.CallCount(upstream.MethodPushOpened))
}

func TestCancelledContextStillDispatches(t *testing.T) {
	client := upstream.NewMockClient("sdk", 1.0, 5*time.Millisecond, 0)
	r, _ := newTestRouter(&stubResolver{status: models.AuthorizationAuthorized}, client, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := r.Handle(ctx, Delivery{DeviceID: "d", LifecycleState: "active"}, nil)
	assert.NoError(t, outcome.DispatchErr)
	assert.Equal(t, 1, client.CallCount(upstream.MethodForegroundPush))
}

// stallingClient blocks in the push entry points until released and never
// looks at ctx
type stallingClient struct {
	*upstream.MockClient
	release chan struct{}
}

func (c *stallingClient) ForegroundPush(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	<-c.release
	return nil
}

func (c *stallingClient) PushOpened(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	<-c.release
	return nil
}

func TestStalledUpstreamStillAcknowledges(t *testing.T) {
	client := &stallingClient{MockClient: upstream.NewMockClient("sdk", 1.0, 0, 0), release: make(chan struct{})}
	defer close(client.release)

	store := debug.NewStore(debug.Options{EnableDebugger: true, DebugBuild: true, Logger: quietLogger()})
	r := New(&stubResolver{status: models.AuthorizationAuthorized}, client, store, Config{
		UpstreamTimeout: 50 * time.Millisecond,
		AckTimeout:      time.Second,
	}, quietLogger())
	acks := &ackRecorder{}

	done := make(chan Outcome, 1)
	go func() {
		done <- r.Handle(context.Background(), Delivery{DeviceID: "d", LifecycleState: "background"}, acks.ack)
	}()

	var outcome Outcome
	select {
	case outcome = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return while the upstream was stalled")
	}

	assert.ErrorIs(t, outcome.DispatchErr, bridgeerr.ErrUpstreamDispatch)
	assert.ErrorIs(t, outcome.DispatchErr, context.DeadlineExceeded)
	assert.True(t, outcome.Acknowledged)
	assert.Equal(t, []models.FetchResult{models.FetchResultNoData}, acks.all())
	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "Upstream Dispatch Failed", events[1].EventType)
}
