// Consumer Service - Routes platform events from Kafka through the bridge
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/config"
	"notification-bridge/internal/debug"
	"notification-bridge/internal/kafka"
	"notification-bridge/internal/metrics"
	"notification-bridge/internal/redis"
	"notification-bridge/internal/upstream"
	"notification-bridge/internal/worker"
	pkgconfig "notification-bridge/pkg/config"
	"notification-bridge/pkg/models"
	"notification-bridge/pkg/services"
)

// Service consumes platform events and hands them to the worker pool
type Service struct {
	config        *config.Config
	logger        *logrus.Logger
	bridge        *services.BridgeService
	workerPool    *worker.Pool
	kafkaConsumer *kafka.Consumer
	upstreamSink  *kafka.Producer
	eventProducer *kafka.Producer
	activity      *redis.ActivityWindow
	redisClient   *goredis.Client
	httpServer    *http.Server

	// Channels
	eventChan chan *models.PlatformEvent
	errorChan chan error

	// Context and cancellation
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService creates a new consumer service
func NewService(cfg *config.Config, logger *logrus.Logger) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// Initialize Redis client
	redisClient := redis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redis.HealthCheck(ctx, redisClient); err != nil {
		cancel()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("Redis connection established")

	settings := redis.Wrap(redisClient, cfg.SettingsTTL, logger)
	activity := redis.NewActivityWindow(redisClient, cfg.ActivityWindow)

	// Upstream SDK calls are published to their own topic
	upstreamSink, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.UpstreamTopic, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create upstream producer: %w", err)
	}

	store := debug.NewStore(debug.Options{
		EnableDebugger: cfg.EnableDebugger,
		DebugBuild:     cfg.DebugBuild || pkgconfig.IsDebugBuild(),
		Logger:         logger,
	})

	bridge := services.NewBridgeService(services.Options{
		Settings:               settings,
		SDK:                    upstream.NewKafkaClient(upstreamSink, cfg.UpstreamDomain, cfg.UpstreamMode, logger),
		Store:                  store,
		Activity:               activity,
		AckTimeout:             cfg.AckTimeout,
		RegistrationTimeout:    cfg.RegistrationTimeout,
		UpstreamTimeout:        cfg.UpstreamTimeout,
		PermissionQueryTimeout: cfg.PermissionQueryTimeout,
		Logger:                 logger,
	})

	// Initialize worker pool
	workerPool := worker.NewPool(cfg.WorkerCount, cfg.MaxQueueSize, bridge, bridge.HealthCheck, logger)

	// Create channels
	eventChan := make(chan *models.PlatformEvent, cfg.MaxQueueSize)
	errorChan := make(chan error, 100)

	// Initialize Kafka consumer
	kafkaConsumer, err := kafka.NewConsumer(
		cfg.KafkaBrokers,
		cfg.ConsumerGroup,
		[]string{cfg.KafkaTopic},
		eventChan,
		errorChan,
		logger,
	)
	if err != nil {
		upstreamSink.Close()
		cancel()
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	// Producer for the test send endpoint
	eventProducer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if err != nil {
		logger.WithError(err).Warn("Failed to create platform event producer")
		eventProducer = nil
	}

	service := &Service{
		config:        cfg,
		logger:        logger,
		bridge:        bridge,
		workerPool:    workerPool,
		kafkaConsumer: kafkaConsumer,
		upstreamSink:  upstreamSink,
		eventProducer: eventProducer,
		activity:      activity,
		redisClient:   redisClient,
		eventChan:     eventChan,
		errorChan:     errorChan,
		ctx:           ctx,
		cancel:        cancel,
	}

	service.setupHTTPServer()

	return service, nil
}

// Start starts the consumer service
func (s *Service) Start() error {
	s.logger.Info("Starting notification bridge consumer...")

	s.workerPool.Start(s.ctx)

	if err := s.kafkaConsumer.Start(); err != nil {
		return fmt.Errorf("failed to start kafka consumer: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents()

	s.wg.Add(1)
	go s.processResults()

	s.wg.Add(1)
	go s.processErrors()

	s.wg.Add(1)
	go s.startHTTPServer()

	s.logger.Info("Notification bridge consumer started successfully")
	return nil
}

// Stop stops the service gracefully
func (s *Service) Stop() {
	s.logger.Info("Shutting down notification bridge consumer...")

	s.cancel()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	if err := s.kafkaConsumer.Stop(); err != nil {
		s.logger.WithError(err).Warn("Kafka consumer stop error")
	}

	s.workerPool.Stop()

	if err := s.upstreamSink.Close(); err != nil {
		s.logger.WithError(err).Warn("Upstream producer close error")
	}
	if s.eventProducer != nil {
		if err := s.eventProducer.Close(); err != nil {
			s.logger.WithError(err).Warn("Platform event producer close error")
		}
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.WithError(err).Warn("Redis client close error")
	}

	s.wg.Wait()

	s.logger.Info("Notification bridge consumer stopped")
}

// processEvents submits consumed platform events to the worker pool
func (s *Service) processEvents() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-s.eventChan:
			if event == nil {
				continue
			}
			if err := s.workerPool.Submit(event); err != nil {
				s.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to submit platform event to worker pool")
			}
		}
	}
}

// processResults logs results from the worker pool
func (s *Service) processResults() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case result := <-s.workerPool.Results():
			if result == nil {
				continue
			}

			logger := s.logger.WithFields(logrus.Fields{
				"event_id":  result.EventID,
				"device_id": result.DeviceID,
				"kind":      result.Kind,
				"duration":  result.Duration,
			})
			if result.Target != "" {
				logger = logger.WithField("target", result.Target)
			}
			if result.Success {
				logger.Info("Platform event processed")
			} else {
				logger.WithError(result.Error).Warn("Platform event failed")
			}
		}
	}
}

// processErrors logs errors from the consumer and the worker pool
func (s *Service) processErrors() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case err := <-s.errorChan:
			if err == nil {
				continue
			}
			s.logger.WithError(err).Error("Consumer error")
		case err := <-s.workerPool.Errors():
			if err == nil {
				continue
			}
			s.logger.WithError(err).Error("Worker pool error")
		}
	}
}

// setupHTTPServer sets up the HTTP server for health, metrics and the debug session
func (s *Service) setupHTTPServer() {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/stats", s.statsHandler).Methods("GET")
	router.HandleFunc("/activity/{deviceID}", s.activityHandler).Methods("GET")
	router.HandleFunc("/debug/export", s.debugExportHandler).Methods("GET")
	router.HandleFunc("/debug/events/{id}/export", s.debugEventExportHandler).Methods("GET")

	if s.eventProducer != nil {
		router.HandleFunc("/send", s.sendEventHandler).Methods("POST")
	}

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// startHTTPServer starts the HTTP server
func (s *Service) startHTTPServer() {
	defer s.wg.Done()

	s.logger.WithField("port", s.config.Port).Info("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("HTTP server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// healthHandler provides health check endpoint
func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"service":   "notification-bridge-consumer",
		"status":    "healthy",
		"debugger":  s.bridge.DebugEnabled(),
		"timestamp": time.Now().Unix(),
	}
	code := http.StatusOK

	if err := s.workerPool.IsHealthy(r.Context()); err != nil {
		status["status"] = "unhealthy"
		status["worker_pool_error"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if err := redis.HealthCheck(r.Context(), s.redisClient); err != nil {
		status["status"] = "unhealthy"
		status["redis_error"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	if err := kafka.HealthCheck(s.config.KafkaBrokers); err != nil {
		status["status"] = "unhealthy"
		status["kafka_error"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, status)
}

// statsHandler reports worker pool counters
func (s *Service) statsHandler(w http.ResponseWriter, r *http.Request) {
	processed, failed := s.workerPool.GetMetrics()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processed_events": processed,
		"failed_events":    failed,
		"queue_size":       s.workerPool.QueueSize(),
		"worker_count":     s.config.WorkerCount,
		"debug_events":     len(s.bridge.DebugEvents()),
		"timestamp":        time.Now().Unix(),
	})
}

// activityHandler reports a device's deliveries in the current window
func (s *Service) activityHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceID"]

	count, err := s.activity.Count(r.Context(), deviceID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error getting activity count: %v", err), http.StatusInternalServerError)
		return
	}

	ttl, err := s.activity.TTL(r.Context(), deviceID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error getting TTL: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":        deviceID,
		"deliveries":       count,
		"window_seconds":   int(s.config.ActivityWindow.Seconds()),
		"reset_in_seconds": int(ttl.Seconds()),
	})
}

// debugExportHandler writes the session export as text
func (s *Service) debugExportHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.bridge.ExportDebugSession())
}

// debugEventExportHandler writes a single event export as text
func (s *Service) debugEventExportHandler(w http.ResponseWriter, r *http.Request) {
	export, err := s.bridge.ExportDebugEvent(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, export)
}

// sendEventHandler publishes a platform event for testing
func (s *Service) sendEventHandler(w http.ResponseWriter, r *http.Request) {
	var event models.PlatformEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	if event.Kind == "" {
		event.Kind = models.KindNotification
	}

	data, err := json.Marshal(&event)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode event: %v", err), http.StatusInternalServerError)
		return
	}

	if _, _, err := s.eventProducer.Publish(r.Context(), event.DeviceID, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to publish event: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Platform event published",
		"kind":      event.Kind,
		"device_id": event.DeviceID,
	})
}

func main() {
	cfg := config.LoadConfig()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	metrics.Register()

	service, err := NewService(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create service")
	}

	if err := service.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start service")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Received signal")

	service.Stop()
}
