package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/token"
	"notification-bridge/pkg/models"
)

// Publisher writes a keyed message to the upstream topic
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) (partition int32, offset int64, err error)
	HealthCheck() error
}

// Call is the envelope published for every upstream SDK call
type Call struct {
	ID                  string                 `json:"id"`
	Method              string                 `json:"method"`
	Domain              string                 `json:"domain"`
	Mode                string                 `json:"mode"`
	AuthorizationStatus string                 `json:"authorization_status,omitempty"`
	Token               string                 `json:"token,omitempty"`
	Payload             models.Payload         `json:"payload,omitempty"`
	Event               *TrackedEvent          `json:"event,omitempty"`
	Identifiers         map[string]interface{} `json:"identifiers,omitempty"`
	CreativeID          string                 `json:"creative_id,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

// KafkaClient implements SDK by publishing each call to Kafka
type KafkaClient struct {
	publisher Publisher
	domain    string
	mode      string
	logger    *logrus.Logger
}

// NewKafkaClient creates an upstream client backed by a Kafka publisher
func NewKafkaClient(publisher Publisher, domain, mode string, logger *logrus.Logger) *KafkaClient {
	return &KafkaClient{
		publisher: publisher,
		domain:    domain,
		mode:      mode,
		logger:    logger,
	}
}

// Name returns the client name
func (c *KafkaClient) Name() string {
	return "kafka"
}

// RegisterDeviceToken publishes a token registration
func (c *KafkaClient) RegisterDeviceToken(ctx context.Context, tok []byte, status models.AuthorizationStatus) error {
	_, err := c.publish(ctx, &Call{
		Method:              MethodRegisterDeviceToken,
		AuthorizationStatus: status.String(),
		Token:               token.Encode(tok),
	})
	return err
}

// RegisterDeviceTokenWithCallback publishes a token registration and reports
// the broker acknowledgment through callback from a separate goroutine
func (c *KafkaClient) RegisterDeviceTokenWithCallback(ctx context.Context, tok []byte, status models.AuthorizationStatus, callback RegistrationCallback) error {
	call := c.newCall(&Call{
		Method:              MethodRegisterDeviceToken,
		AuthorizationStatus: status.String(),
		Token:               token.Encode(tok),
	})
	value, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("failed to marshal upstream call: %w", err)
	}

	go func() {
		partition, offset, err := c.publisher.Publish(ctx, c.domain, value)
		if err != nil {
			callback(nil, fmt.Errorf("failed to publish %s: %w", call.Method, err))
			return
		}
		callback(&RegistrationResponse{
			MessageID:  call.ID,
			Partition:  partition,
			Offset:     offset,
			AcceptedAt: time.Now(),
		}, nil)
	}()

	return nil
}

// ForegroundPush publishes a foreground push event
func (c *KafkaClient) ForegroundPush(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	_, err := c.publish(ctx, &Call{
		Method:              MethodForegroundPush,
		AuthorizationStatus: status.String(),
		Payload:             payload,
	})
	return err
}

// PushOpened publishes a push open event
func (c *KafkaClient) PushOpened(ctx context.Context, payload models.Payload, status models.AuthorizationStatus) error {
	_, err := c.publish(ctx, &Call{
		Method:              MethodPushOpened,
		AuthorizationStatus: status.String(),
		Payload:             payload,
	})
	return err
}

// RegularOpen publishes a regular open event
func (c *KafkaClient) RegularOpen(ctx context.Context, status models.AuthorizationStatus) error {
	_, err := c.publish(ctx, &Call{
		Method:              MethodRegularOpen,
		AuthorizationStatus: status.String(),
	})
	return err
}

// RecordEvent publishes a commerce or custom event
func (c *KafkaClient) RecordEvent(ctx context.Context, event TrackedEvent) error {
	_, err := c.publish(ctx, &Call{
		Method: MethodRecordEvent,
		Event:  &event,
	})
	return err
}

// Identify publishes user identifiers
func (c *KafkaClient) Identify(ctx context.Context, identifiers map[string]interface{}) error {
	_, err := c.publish(ctx, &Call{
		Method:      MethodIdentify,
		Identifiers: identifiers,
	})
	return err
}

// ClearUser publishes a user reset
func (c *KafkaClient) ClearUser(ctx context.Context) error {
	_, err := c.publish(ctx, &Call{Method: MethodClearUser})
	return err
}

// TriggerCreative publishes a creative trigger
func (c *KafkaClient) TriggerCreative(ctx context.Context, creativeID string) error {
	_, err := c.publish(ctx, &Call{
		Method:     MethodTriggerCreative,
		CreativeID: creativeID,
	})
	return err
}

// HealthCheck checks the Kafka cluster is reachable
func (c *KafkaClient) HealthCheck(ctx context.Context) error {
	return c.publisher.HealthCheck()
}

func (c *KafkaClient) newCall(call *Call) *Call {
	call.ID = uuid.New().String()
	call.Domain = c.domain
	call.Mode = c.mode
	call.CreatedAt = time.Now()
	return call
}

func (c *KafkaClient) publish(ctx context.Context, call *Call) (*Call, error) {
	c.newCall(call)

	value, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream call: %w", err)
	}

	// Keyed by domain so one tenant's calls stay ordered on a single partition
	partition, offset, err := c.publisher.Publish(ctx, c.domain, value)
	if err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", call.Method, err)
	}

	c.logger.WithFields(logrus.Fields{
		"call_id":   call.ID,
		"method":    call.Method,
		"partition": partition,
		"offset":    offset,
	}).Debug("Upstream call published")

	return call, nil
}
