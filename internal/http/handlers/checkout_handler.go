package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

const maxWebhookBody = 64 << 10

// CheckoutHandler продаёт кредиты через Stripe Checkout.
type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Checkout POST /checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	url, err := h.checkout.Checkout(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// StripeWebhook POST /webhooks/stripe
func (h *CheckoutHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return
	}

	if err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
