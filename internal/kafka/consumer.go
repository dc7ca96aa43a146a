package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"notification-bridge/pkg/models"
)

// Consumer reads platform events from Kafka
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	topics        []string
	handler       *ConsumerGroupHandler
	logger        *logrus.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// ConsumerGroupHandler implements sarama.ConsumerGroupHandler
type ConsumerGroupHandler struct {
	eventChan chan<- *models.PlatformEvent
	errorChan chan<- error
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID string, topics []string, eventChan chan<- *models.PlatformEvent, errorChan chan<- error, logger *logrus.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		consumerGroup: consumerGroup,
		topics:        topics,
		handler:       NewConsumerGroupHandler(eventChan, errorChan),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// NewConsumerGroupHandler creates a handler feeding decoded events into eventChan
func NewConsumerGroupHandler(eventChan chan<- *models.PlatformEvent, errorChan chan<- error) *ConsumerGroupHandler {
	return &ConsumerGroupHandler{
		eventChan: eventChan,
		errorChan: errorChan,
	}
}

// Start starts consuming messages from Kafka
func (c *Consumer) Start() error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.consumerGroup.Consume(c.ctx, c.topics, c.handler); err != nil {
				select {
				case c.handler.errorChan <- fmt.Errorf("consumer error: %w", err):
				case <-c.ctx.Done():
					return
				}
			}

			if c.ctx.Err() != nil {
				return
			}
		}
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for err := range c.consumerGroup.Errors() {
			select {
			case c.handler.errorChan <- fmt.Errorf("consumer group error: %w", err):
			case <-c.ctx.Done():
				return
			}
		}
	}()

	c.logger.WithField("topics", c.topics).Info("Kafka consumer started")
	return nil
}

// Stop stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("Stopping Kafka consumer...")
	c.cancel()
	err := c.consumerGroup.Close()
	c.wg.Wait()
	return err
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages()
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			event, err := DecodePlatformEvent(message.Value)
			if err != nil {
				select {
				case h.errorChan <- fmt.Errorf("partition %d offset %d: %w", message.Partition, message.Offset, err):
				case <-session.Context().Done():
					return nil
				}
				// A malformed event is never retried
				session.MarkMessage(message, "")
				continue
			}

			select {
			case h.eventChan <- event:
				session.MarkMessage(message, "")
			case <-session.Context().Done():
				return nil
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

// DecodePlatformEvent parses and validates a platform event message
func DecodePlatformEvent(value []byte) (*models.PlatformEvent, error) {
	var event models.PlatformEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal platform event: %w", err)
	}

	if event.DeviceID == "" {
		return nil, errors.New("platform event has no device id")
	}
	switch event.Kind {
	case models.KindNotification, models.KindRegistrationError:
	case models.KindToken:
		if event.Token == "" {
			return nil, errors.New("token event has no token")
		}
	default:
		return nil, fmt.Errorf("unknown platform event kind %q", event.Kind)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.Status = models.StatusPending

	return &event, nil
}
