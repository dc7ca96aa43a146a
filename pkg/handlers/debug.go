package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notification-bridge/pkg/models"
	"notification-bridge/pkg/services"
)

// ListDebugEvents handles GET /api/v1/debug/events
func (h *BridgeHandler) ListDebugEvents(c *gin.Context) {
	events := h.bridge.DebugEvents()

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Debug events retrieved",
		Data: map[string]interface{}{
			"enabled": h.bridge.DebugEnabled(),
			"count":   len(events),
			"events":  events,
		},
	})
}

// ExportDebugSession handles GET /api/v1/debug/export
func (h *BridgeHandler) ExportDebugSession(c *gin.Context) {
	c.String(http.StatusOK, h.bridge.ExportDebugSession())
}

// ExportDebugEvent handles GET /api/v1/debug/events/:id/export
func (h *BridgeHandler) ExportDebugEvent(c *gin.Context) {
	export, err := h.bridge.ExportDebugEvent(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, models.APIResponse{
				Success: false,
				Message: "Debug event not found",
				Error:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Message: "Failed to export debug event",
			Error:   err.Error(),
		})
		return
	}

	c.String(http.StatusOK, export)
}
