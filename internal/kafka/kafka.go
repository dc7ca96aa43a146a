// Package kafka consumes platform events from Kafka and publishes upstream
// SDK calls to it
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Producer publishes keyed messages to a single topic
type Producer struct {
	producer sarama.SyncProducer
	brokers  []string
	topic    string
	logger   *logrus.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string, logger *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"topic":   topic,
		"brokers": brokers,
	}).Info("Kafka producer initialized")

	return NewProducerFrom(producer, brokers, topic, logger), nil
}

// NewProducerFrom wraps an existing sarama producer
func NewProducerFrom(producer sarama.SyncProducer, brokers []string, topic string, logger *logrus.Logger) *Producer {
	return &Producer{
		producer: producer,
		brokers:  brokers,
		topic:    topic,
		logger:   logger,
	}
}

type sendResult struct {
	partition int32
	offset    int64
	err       error
}

// Publish sends a message and waits for the broker acknowledgment or ctx
func (p *Producer) Publish(ctx context.Context, key string, value []byte) (int32, int64, error) {
	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	done := make(chan sendResult, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(message)
		done <- sendResult{partition: partition, offset: offset, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return 0, 0, fmt.Errorf("failed to send message: %w", result.err)
		}
		p.logger.WithFields(logrus.Fields{
			"topic":     p.topic,
			"key":       key,
			"partition": result.partition,
			"offset":    result.offset,
		}).Debug("Message produced successfully")
		return result.partition, result.offset, nil
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("produce aborted: %w", ctx.Err())
	}
}

// HealthCheck verifies that the brokers are reachable
func (p *Producer) HealthCheck() error {
	if len(p.brokers) == 0 {
		return nil
	}
	return HealthCheck(p.brokers)
}

// Close closes the producer
func (p *Producer) Close() error {
	p.logger.Info("Producer closed")
	return p.producer.Close()
}

// HealthCheck performs a basic health check by attempting to get metadata
func HealthCheck(brokers []string) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0

	client, err := sarama.NewClient(brokers, config)
	if err != nil {
		return fmt.Errorf("failed to create kafka client: %w", err)
	}
	defer client.Close()

	if _, err := client.Topics(); err != nil {
		return fmt.Errorf("failed to fetch topics: %w", err)
	}

	return nil
}
