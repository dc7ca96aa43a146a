// API Gateway - Entry point for platform deliveries, commerce events and the debug session
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/debug"
	"notification-bridge/internal/kafka"
	"notification-bridge/internal/metrics"
	"notification-bridge/internal/redis"
	"notification-bridge/internal/upstream"
	"notification-bridge/pkg/config"
	"notification-bridge/pkg/handlers"
	"notification-bridge/pkg/services"
)

func main() {
	// Load configuration
	cfg := config.GetDefaultConfig()
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		loadedCfg, err := config.Load(configFile)
		if err != nil {
			logrus.WithError(err).Warn("Failed to load config file, using defaults")
		} else {
			cfg = loadedCfg
		}
	}

	// Setup logger
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Log.File != "" {
		file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logger.SetOutput(file)
		} else {
			logger.WithError(err).Warn("Failed to open log file, using stdout")
		}
	}

	logger.WithFields(logrus.Fields{
		"build_type": config.BuildType,
		"debugger":   cfg.Bridge.DebuggerEnabled(),
	}).Info("Starting Notification Bridge API Gateway")

	metrics.Register()

	// Initialize Redis client
	redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.SettingsTTL, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Redis client")
	}
	defer redisClient.Close()

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	logger.Info("Connected to Redis successfully")

	// Initialize Kafka producer for upstream SDK calls
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers(), cfg.Upstream.Topic, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize Kafka producer")
	}
	defer producer.Close()
	logger.WithField("topic", cfg.Upstream.Topic).Info("Kafka producer initialized successfully")

	// Initialize services
	store := debug.NewStore(debug.Options{
		EnableDebugger: cfg.Bridge.EnableDebugger,
		DebugBuild:     cfg.Bridge.DebugBuild || config.IsDebugBuild(),
		Logger:         logger,
	})

	bridge := services.NewBridgeService(services.Options{
		Settings:               redisClient,
		SDK:                    upstream.NewKafkaClient(producer, cfg.Bridge.Domain, cfg.Bridge.Mode, logger),
		Store:                  store,
		Activity:               redis.NewActivityWindow(redisClient.Redis(), cfg.Redis.ActivityWindow),
		AckTimeout:             cfg.Bridge.AckTimeout,
		RegistrationTimeout:    cfg.Bridge.RegistrationTimeout,
		UpstreamTimeout:        cfg.Bridge.UpstreamTimeout,
		PermissionQueryTimeout: cfg.Bridge.PermissionQueryTimeout,
		Logger:                 logger,
	})

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.NewBridgeHandler(bridge, logger), logger)

	// Setup HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("address", server.Addr).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
