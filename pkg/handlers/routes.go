package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"notification-bridge/pkg/middleware"
)

// NewRouter builds the gateway's gin engine with middleware and routes
func NewRouter(h *BridgeHandler, logger *logrus.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS())

	v1 := router.Group("/api/v1")
	{
		// Platform deliveries
		v1.POST("/notifications", h.HandleNotification)
		v1.POST("/tokens", h.RegisterToken)
		v1.POST("/tokens/errors", h.RegistrationError)

		// Device permission settings
		v1.PUT("/devices/:device_id/settings", h.UpdateSettings)
		v1.DELETE("/devices/:device_id/settings", h.DeleteSettings)
		v1.GET("/devices/:device_id/authorization", h.GetAuthorization)

		// Commerce and identity
		v1.POST("/events/product-view", h.ProductView)
		v1.POST("/events/add-to-cart", h.AddToCart)
		v1.POST("/events/purchase", h.Purchase)
		v1.POST("/events/custom", h.Custom)
		v1.POST("/users/identify", h.Identify)
		v1.POST("/users/clear", h.ClearUser)
		v1.POST("/creatives/trigger", h.TriggerCreative)

		// Debug session
		v1.GET("/debug/events", h.ListDebugEvents)
		v1.GET("/debug/export", h.ExportDebugSession)
		v1.GET("/debug/events/:id/export", h.ExportDebugEvent)
	}

	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
