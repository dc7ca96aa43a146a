package upstream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"notification-bridge/pkg/models"
)

// CallbackMode controls how MockClient answers callback-style registrations
type CallbackMode int

const (
	// CallbackOnce invokes the callback once, as a well-behaved SDK would
	CallbackOnce CallbackMode = iota
	// CallbackNever drops the callback
	CallbackNever
	// CallbackTwice invokes the callback twice
	CallbackTwice
	// CallbackSyncError returns an error without ever invoking the callback
	CallbackSyncError
)

// MockCall records one call made against MockClient
type MockCall struct {
	Method     string
	Status     models.AuthorizationStatus
	Token      []byte
	Payload    models.Payload
	Event      *TrackedEvent
	CreativeID string
	At         time.Time
}

// MockClient simulates the upstream SDK with configurable behavior
type MockClient struct {
	name          string
	successRate   float64 // 0.0 to 1.0
	avgLatency    time.Duration
	latencyJitter time.Duration

	mu           sync.Mutex
	healthStatus bool
	callbackMode CallbackMode
	panicOn      map[string]bool
	calls        []MockCall
}

// NewMockClient creates a new mock upstream with configurable behavior
func NewMockClient(name string, successRate float64, avgLatency, latencyJitter time.Duration) *MockClient {
	return &MockClient{
		name:          name,
		successRate:   successRate,
		avgLatency:    avgLatency,
		latencyJitter: latencyJitter,
		healthStatus:  true,
		panicOn:       make(map[string]bool),
	}
}

// Name returns the client name
func (m *MockClient) Name() string {
	return m.name
}

// SetHealthStatus allows controlling the health status for testing
func (m *MockClient) SetHealthStatus(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthStatus = healthy
}

// SetCallbackMode controls callback-style registrations
func (m *MockClient) SetCallbackMode(mode CallbackMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbackMode = mode
}

// SetPanicOn makes the given method panic when called
func (m *MockClient) SetPanicOn(method string, panics bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicOn[method] = panics
}

// Calls returns every call made so far, in order
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was called
func (m *MockClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, call := range m.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// Reset forgets recorded calls
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// RegisterDeviceToken simulates a token registration
func (m *MockClient) RegisterDeviceToken(ctx context.Context, token []byte, status models.AuthorizationStatus) error {
	m.record(MockCall{Method: MethodRegisterDeviceToken, Status: status, Token: append([]byte(nil), token...)})
	return m.simulate(ctx)
}

// RegisterDeviceTokenWithCallback simulates a callback-style token registration
func (m *MockClient) RegisterDeviceTokenWithCallback(ctx context.Context, token []byte, status models.AuthorizationStatus, callback RegistrationCallback) error {
	m.record(MockCall{Method: MethodRegisterDeviceToken, Status: status, Token: append([]byte(nil), token...)})

	m.mu.Lock()
	mode := m.callbackMode
	m.mu.Unlock()

	switch mode {
	case CallbackSyncError:
		return errors.New("registration rejected")
	case CallbackNever:
		return nil
	}

	invocations := 1
	if mode == CallbackTwice {
		invocations = 2
	}

	go func() {
		err := m.simulate(ctx)
		for i := 0; i < invocations; i++ {
			if err != nil {
				callback(nil, err)
				continue
			}
			callback(&RegistrationResponse{
				MessageID:  fmt.Sprintf("%s_%s", m.name, uuid.New().String()[:8]),
				AcceptedAt: time.Now(),
			}, nil)
		}
	}()

	return nil
}

// ForegroundPush simulates a foreground push report
func (m *MockClient) ForegroundPush(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	m.record(MockCall{Method: MethodForegroundPush, Status: status, Payload: payload})
	return m.simulate(ctx)
}

// PushOpened simulates a push open report
func (m *MockClient) PushOpened(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	m.record(MockCall{Method: MethodPushOpened, Status: status, Payload: payload})
	return m.simulate(ctx)
}

// RegularOpen simulates a regular open report
func (m *MockClient) RegularOpen(ctx context.Context, status models.AuthorizationStatus) error {
	m.record(MockCall{Method: MethodRegularOpen, Status: status})
	return m.simulate(ctx)
}

// RecordEvent simulates a commerce event report
func (m *MockClient) RecordEvent(ctx context.Context, event TrackedEvent) error {
	m.record(MockCall{Method: MethodRecordEvent, Event: &event})
	return m.simulate(ctx)
}

// Identify simulates a user identification
func (m *MockClient) Identify(ctx context.Context, identifiers map[string]interface{}) error {
	m.record(MockCall{Method: MethodIdentify})
	return m.simulate(ctx)
}

// ClearUser simulates a user reset
func (m *MockClient) ClearUser(ctx context.Context) error {
	m.record(MockCall{Method: MethodClearUser})
	return m.simulate(ctx)
}

// TriggerCreative simulates a creative trigger
func (m *MockClient) TriggerCreative(ctx context.Context, creativeID string) error {
	m.record(MockCall{Method: MethodTriggerCreative, CreativeID: creativeID})
	return m.simulate(ctx)
}

// HealthCheck simulates a health check for the upstream
func (m *MockClient) HealthCheck(ctx context.Context) error {
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	healthy := m.healthStatus
	m.mu.Unlock()

	if !healthy {
		return fmt.Errorf("upstream %s is unhealthy", m.name)
	}
	return nil
}

func (m *MockClient) record(call MockCall) {
	call.At = time.Now()

	m.mu.Lock()
	m.calls = append(m.calls, call)
	panics := m.panicOn[call.Method]
	m.mu.Unlock()

	if panics {
		panic(fmt.Sprintf("%s: simulated upstream crash", call.Method))
	}
}

// simulate applies latency and the configured success rate
func (m *MockClient) simulate(ctx context.Context) error {
	latency := m.avgLatency
	if m.latencyJitter > 0 {
		latency += time.Duration(rand.Int63n(int64(m.latencyJitter)))
	}

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if rand.Float64() < m.successRate {
		return nil
	}

	// Simulate different types of failures
	failures := []string{
		"network timeout",
		"rate limit exceeded",
		"invalid token",
		"service unavailable",
	}
	return errors.New(failures[rand.Intn(len(failures))])
}
