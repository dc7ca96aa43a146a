// Package handlers provides HTTP request handlers
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"notification-bridge/internal/bridgeerr"
	"notification-bridge/pkg/models"
	"notification-bridge/pkg/services"
)

// BridgeHandler handles bridge HTTP requests
type BridgeHandler struct {
	bridge *services.BridgeService
	logger *logrus.Logger
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(bridge *services.BridgeService, logger *logrus.Logger) *BridgeHandler {
	return &BridgeHandler{
		bridge: bridge,
		logger: logger,
	}
}

func (h *BridgeHandler) badRequest(c *gin.Context, message string, err error) {
	h.logger.WithError(err).WithField("path", c.FullPath()).Warn(message)
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

// HandleNotification handles POST /api/v1/notifications
func (h *BridgeHandler) HandleNotification(c *gin.Context) {
	var req models.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	// The HTTP response is the platform's completion signal
	outcome := h.bridge.HandleNotification(c.Request.Context(), &req, func(models.FetchResult) {})

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Notification dispatched",
		Data:    outcome,
	})
}

// RegisterToken handles POST /api/v1/tokens
func (h *BridgeHandler) RegisterToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	outcome, err := h.bridge.RegisterToken(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, bridgeerr.ErrInvalidTokenFormat) {
			h.badRequest(c, "Invalid device token", err)
			return
		}
		h.logger.WithError(err).Error("Failed to register token")
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Message: "Failed to register token",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Message: "Device token accepted",
		Data:    outcome,
	})
}

// RegistrationError handles POST /api/v1/tokens/errors
func (h *BridgeHandler) RegistrationError(c *gin.Context) {
	var req models.RegistrationErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	status := h.bridge.HandleRegistrationError(c.Request.Context(), &req)

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Registration failure handled",
		Data: map[string]interface{}{
			"device_id":            req.DeviceID,
			"authorization_status": status,
		},
	})
}

// UpdateSettings handles PUT /api/v1/devices/:device_id/settings
func (h *BridgeHandler) UpdateSettings(c *gin.Context) {
	deviceID := c.Param("device_id")

	var req models.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}

	settings, err := h.bridge.UpdateDeviceSettings(c.Request.Context(), deviceID, &req)
	if err != nil {
		h.logger.WithError(err).WithField("device_id", deviceID).Error("Failed to update device settings")
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Message: "Failed to update device settings",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Device settings updated",
		Data:    settings,
	})
}

// DeleteSettings handles DELETE /api/v1/devices/:device_id/settings
func (h *BridgeHandler) DeleteSettings(c *gin.Context) {
	deviceID := c.Param("device_id")

	if err := h.bridge.DeleteDeviceSettings(c.Request.Context(), deviceID); err != nil {
		h.logger.WithError(err).WithField("device_id", deviceID).Error("Failed to delete device settings")
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Message: "Failed to delete device settings",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Device settings deleted",
		Data: map[string]interface{}{
			"device_id": deviceID,
		},
	})
}

// GetAuthorization handles GET /api/v1/devices/:device_id/authorization
func (h *BridgeHandler) GetAuthorization(c *gin.Context) {
	deviceID := c.Param("device_id")
	status := h.bridge.ResolveAuthorization(c.Request.Context(), deviceID)

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Authorization status resolved",
		Data: map[string]interface{}{
			"device_id":            deviceID,
			"authorization_status": status,
		},
	})
}

// HealthCheck handles GET /health
func (h *BridgeHandler) HealthCheck(c *gin.Context) {
	if err := h.bridge.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.APIResponse{
			Success: false,
			Message: "Upstream is unhealthy",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "API Gateway is healthy",
		Data: map[string]interface{}{
			"service":        "notification-bridge-gateway",
			"status":         "running",
			"debug_recorder": h.bridge.DebugEnabled(),
		},
	})
}
