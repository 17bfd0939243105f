package handlers

import (
	"log/slog"
	"net/http"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/farellandr/ticketgate/internal/services"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	checkout *services.CheckoutService
	webhooks *services.WebhookService
	logger   *slog.Logger
}

func NewPaymentHandler(checkout *services.CheckoutService, webhooks *services.WebhookService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, webhooks: webhooks, logger: logger}
}

func (h *PaymentHandler) CreatePreference(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return
	}

	pref, err := h.checkout.CreatePreference(c.Request.Context(), req)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, pref)
}

func (h *PaymentHandler) RequestVoucher(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithAppError(c, helpers.BindingError(err))
		return
	}

	inscription, err := h.checkout.RequestVoucher(c.Request.Context(), req)
	if err != nil {
		helpers.RespondWithAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      inscription.ID,
		"status":  inscription.PaymentStatus,
		"message": "Inscription request received.",
	})
}

// Webhook always answers 200: the provider retries anything else, and a
// retry must not be how internal failures are surfaced.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var n services.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		h.logger.Warn("unreadable webhook body", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := h.webhooks.Handle(c.Request.Context(), n)
	if err != nil {
		h.logger.Error("webhook processing failed", "payment_id", n.PaymentID(), "error", err)
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "result": result})
}
