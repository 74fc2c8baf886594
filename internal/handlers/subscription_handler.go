package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

const webhookTokenHeader = "X-Webhook-Token"

type SubscriptionHandler struct {
	BaseHandler
	subscriptionService services.SubscriptionService
	webhookToken        string
}

func NewSubscriptionHandler(subscriptionService services.SubscriptionService, webhookToken string, logger utils.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		BaseHandler:         NewBaseHandler(logger),
		subscriptionService: subscriptionService,
		webhookToken:        webhookToken,
	}
}

// GetMySubscription returns the caller's tier, limits and remaining quota
// @Summary Current subscription
// @Tags subscription
// @Produce json
// @Success 200 {object} models.SubscriptionResponse
// @Router /subscription/me [get]
func (h *SubscriptionHandler) GetMySubscription(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	resp, err := h.subscriptionService.GetSubscription(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SetTier lets an admin move a user between tiers
// @Summary Set subscription tier
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param tier body models.SetTierRequest true "Tier"
// @Success 200 {object} models.Subscription
// @Router /admin/subscriptions/{user_id}/tier [put]
func (h *SubscriptionHandler) SetTier(c *gin.Context) {
	targetID := c.Param("user_id")
	var req models.SetTierRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting subscription tier", "target_user_id", targetID, "tier", req.Tier)

	sub, err := h.subscriptionService.SetTier(c.Request.Context(), targetID, req.Tier)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// RequireWebhookToken rejects webhook calls without the shared secret.
// An unset secret disables the webhook.
func (h *SubscriptionHandler) RequireWebhookToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.webhookToken == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Billing webhook is not configured",
			})
			return
		}
		got := c.GetHeader(webhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid webhook token",
			})
			return
		}
		c.Next()
	}
}

// BillingWebhook applies one provider event
// @Summary Billing webhook
// @Tags billing
// @Accept json
// @Param X-Webhook-Token header string true "Shared secret"
// @Param event body models.BillingEvent true "Provider event"
// @Success 200 {object} SuccessResponse
// @Router /billing/webhook [post]
func (h *SubscriptionHandler) BillingWebhook(c *gin.Context) {
	var event models.BillingEvent
	if !h.bindJSON(c, &event) {
		return
	}

	h.LogRequest(c, "Billing webhook received", "type", event.Type, "subscription_id", event.SubscriptionID)

	if err := h.subscriptionService.HandleBillingEvent(c.Request.Context(), &event); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Event processed"})
}
