// Package worker processes platform events on a fixed set of goroutines.
// Events of one device always land on the same worker, so they are handled
// in arrival order.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/metrics"
	"notification-bridge/pkg/models"
)

// Processor handles a single platform event
type Processor interface {
	Process(ctx context.Context, event *models.PlatformEvent) *models.ProcessingResult
}

// HealthChecker reports whether the pool's downstream dependencies are usable
type HealthChecker func(ctx context.Context) error

// Pool represents a worker pool for processing platform events
type Pool struct {
	workers     int
	jobQueues   []chan *models.PlatformEvent
	resultQueue chan *models.ProcessingResult
	errorQueue  chan error
	quit        chan struct{}
	wg          sync.WaitGroup

	processor Processor
	health    HealthChecker
	logger    *logrus.Logger

	// Metrics
	processed int64
	failed    int64
	mu        sync.RWMutex
}

// NewPool creates a new worker pool. Each worker owns a queue of
// maxQueueSize/workers events.
func NewPool(workers, maxQueueSize int, processor Processor, health HealthChecker, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	perWorker := maxQueueSize / workers
	if perWorker <= 0 {
		perWorker = 1
	}

	queues := make([]chan *models.PlatformEvent, workers)
	for i := range queues {
		queues[i] = make(chan *models.PlatformEvent, perWorker)
	}

	return &Pool{
		workers:     workers,
		jobQueues:   queues,
		resultQueue: make(chan *models.ProcessingResult, maxQueueSize),
		errorQueue:  make(chan error, maxQueueSize),
		quit:        make(chan struct{}),
		processor:   processor,
		health:      health,
		logger:      logger,
	}
}

// Start starts the worker pool
func (p *Pool) Start(ctx context.Context) {
	p.logger.WithField("workers", p.workers).Info("Starting worker pool")

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop stops the worker pool. Events still queued are dropped.
func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool...")
	close(p.quit)
	p.wg.Wait()
	close(p.resultQueue)
	close(p.errorQueue)
	p.logger.Info("Worker pool stopped")
}

// Submit queues an event on its device's worker
func (p *Pool) Submit(event *models.PlatformEvent) error {
	select {
	case <-p.quit:
		return fmt.Errorf("worker pool is stopped")
	default:
	}

	select {
	case p.jobQueues[p.shard(event.DeviceID)] <- event:
		return nil
	default:
		return fmt.Errorf("job queue is full for device %s", event.DeviceID)
	}
}

// shard maps a device to its worker
func (p *Pool) shard(deviceID string) int {
	return int(xxhash.Sum64String(deviceID) % uint64(p.workers))
}

// Results returns the result channel
func (p *Pool) Results() <-chan *models.ProcessingResult {
	return p.resultQueue
}

// Errors returns the error channel
func (p *Pool) Errors() <-chan error {
	return p.errorQueue
}

// GetMetrics returns current metrics
func (p *Pool) GetMetrics() (processed, failed int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processed, p.failed
}

// worker is the main worker function
func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	logger := p.logger.WithField("worker_id", workerID)
	logger.Debug("Worker started")
	defer logger.Debug("Worker stopped")

	queue := p.jobQueues[workerID]
	for {
		select {
		case <-p.quit:
			return
		case <-ctx.Done():
			return
		case event := <-queue:
			p.processEvent(ctx, logger, event)
		}
	}
}

// processEvent processes a single platform event
func (p *Pool) processEvent(ctx context.Context, logger *logrus.Entry, event *models.PlatformEvent) {
	startTime := time.Now()

	logger.WithFields(logrus.Fields{
		"event_id":  event.ID,
		"device_id": event.DeviceID,
		"kind":      event.Kind,
	}).Debug("Processing platform event")

	result := p.safeProcess(ctx, event)
	if result == nil {
		result = &models.ProcessingResult{
			EventID:  event.ID,
			DeviceID: event.DeviceID,
			Kind:     event.Kind,
			Error:    fmt.Errorf("processor returned no result"),
		}
	}
	if result.ProcessedAt.IsZero() {
		result.ProcessedAt = time.Now()
	}
	result.Duration = time.Since(startTime)

	metrics.PlatformEventProcessingDuration.WithLabelValues(string(event.Kind)).Observe(result.Duration.Seconds())

	p.mu.Lock()
	if result.Success {
		p.processed++
	} else {
		p.failed++
	}
	p.mu.Unlock()

	if result.Error != nil {
		p.sendError(fmt.Errorf("event %s for device %s: %w", event.ID, event.DeviceID, result.Error))
	}
	p.sendResult(result)
}

func (p *Pool) safeProcess(ctx context.Context, event *models.PlatformEvent) (result *models.ProcessingResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = &models.ProcessingResult{
				EventID:     event.ID,
				DeviceID:    event.DeviceID,
				Kind:        event.Kind,
				Error:       fmt.Errorf("processor panicked: %v", recovered),
				ProcessedAt: time.Now(),
			}
		}
	}()
	return p.processor.Process(ctx, event)
}

// sendResult sends a result to the result channel without blocking
func (p *Pool) sendResult(result *models.ProcessingResult) {
	select {
	case p.resultQueue <- result:
	default:
		p.logger.WithField("event_id", result.EventID).Warn("Result queue full, dropping result")
	}
}

// sendError sends an error to the error channel without blocking
func (p *Pool) sendError(err error) {
	select {
	case p.errorQueue <- err:
	default:
		p.logger.WithError(err).Warn("Error queue full, dropping error")
	}
}

// QueueSize returns the number of events waiting across all workers
func (p *Pool) QueueSize() int {
	total := 0
	for _, queue := range p.jobQueues {
		total += len(queue)
	}
	return total
}

// IsHealthy performs a basic health check
func (p *Pool) IsHealthy(ctx context.Context) error {
	select {
	case <-p.quit:
		return fmt.Errorf("worker pool is stopped")
	default:
	}

	if p.health != nil {
		if err := p.health(ctx); err != nil {
			return fmt.Errorf("upstream unhealthy: %w", err)
		}
	}
	return nil
}
