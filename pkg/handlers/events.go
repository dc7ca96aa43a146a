package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notification-bridge/internal/commerce"
	"notification-bridge/pkg/models"
)

// respondTracked writes the response of a commerce or identity call
func (h *BridgeHandler) respondTracked(c *gin.Context, message string, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, models.APIResponse{Success: true, Message: message})
	case errors.Is(err, commerce.ErrMissingOrderID),
		errors.Is(err, commerce.ErrEmptyEventType),
		errors.Is(err, commerce.ErrNoIdentifiers):
		h.badRequest(c, "Event rejected", err)
	default:
		h.logger.WithError(err).Warn("Upstream tracker call failed")
		c.JSON(http.StatusBadGateway, models.APIResponse{
			Success: false,
			Message: "Upstream call failed",
			Error:   err.Error(),
		})
	}
}

// ProductView handles POST /api/v1/events/product-view
func (h *BridgeHandler) ProductView(c *gin.Context) {
	var event commerce.ProductView
	if err := c.ShouldBindJSON(&event); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	h.respondTracked(c, "Product view recorded", h.bridge.Commerce().RecordProductView(c.Request.Context(), event))
}

// AddToCart handles POST /api/v1/events/add-to-cart
func (h *BridgeHandler) AddToCart(c *gin.Context) {
	var event commerce.AddToCart
	if err := c.ShouldBindJSON(&event); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	h.respondTracked(c, "Add to cart recorded", h.bridge.Commerce().RecordAddToCart(c.Request.Context(), event))
}

// Purchase handles POST /api/v1/events/purchase
func (h *BridgeHandler) Purchase(c *gin.Context) {
	var event commerce.Purchase
	if err := c.ShouldBindJSON(&event); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	h.respondTracked(c, "Purchase recorded", h.bridge.Commerce().RecordPurchase(c.Request.Context(), event))
}

// Custom handles POST /api/v1/events/custom
func (h *BridgeHandler) Custom(c *gin.Context) {
	var event commerce.Custom
	if err := c.ShouldBindJSON(&event); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	h.respondTracked(c, "Custom event recorded", h.bridge.Commerce().RecordCustom(c.Request.Context(), event))
}

// Identify handles POST /api/v1/users/identify
func (h *BridgeHandler) Identify(c *gin.Context) {
	var req models.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "Invalid request payload", err)
		return
	}
	h.respondTracked(c, "User identified", h.bridge.Commerce().Identify(c.Request.Context(), req))
}

// ClearUser handles POST /api/v1/users/clear
func (h *BridgeHandler) ClearUser(c *gin.Context) {
	h.respondTracked(c, "User cleared", h.bridge.Commerce().ClearUser(c.Request.Context()))
}

// TriggerCreative handles POST /api/v1/creatives/trigger. The body is optional.
func (h *BridgeHandler) TriggerCreative(c *gin.Context) {
	var req models.TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "Invalid request payload", err)
			return
		}
	}
	h.respondTracked(c, "Creative triggered", h.bridge.Commerce().TriggerCreative(c.Request.Context(), req.CreativeID))
}
