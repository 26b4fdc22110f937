package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/http/middleware"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

// OfferHandler обслуживает жизненный цикл предложения.
type OfferHandler struct {
	offers *service.OfferService
}

func NewOfferHandler(offers *service.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// CreateOffer POST /projects/:id/offer
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	actor, projectID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req service.CreateOfferInput
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.offers.CreateOffer(c.Request.Context(), actor, projectID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// GetOffer GET /projects/:id/offer
func (h *OfferHandler) GetOffer(c *gin.Context) {
	actor, projectID, ok := actorAndID(c)
	if !ok {
		return
	}

	offer, err := h.offers.GetOffer(c.Request.Context(), actor, projectID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// CreatePayPalOrder POST /offers/:id/paypal/order
func (h *OfferHandler) CreatePayPalOrder(c *gin.Context) {
	actor, offerID, ok := actorAndID(c)
	if !ok {
		return
	}

	order, err := h.offers.CreatePayPalOrder(c.Request.Context(), actor, offerID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// CapturePayPalOrder POST /offers/:id/paypal/capture
func (h *OfferHandler) CapturePayPalOrder(c *gin.Context) {
	actor, offerID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req struct {
		OrderID string `json:"order_id"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.offers.CapturePayPalOrder(c.Request.Context(), actor, offerID, req.OrderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// SubmitWork POST /offers/:id/submit
func (h *OfferHandler) SubmitWork(c *gin.Context) {
	actor, offerID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req models.WorkSubmission
	if !common.BindJSON(c, &req) {
		return
	}

	offer, err := h.offers.SubmitWork(c.Request.Context(), actor, offerID, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// ApproveWork POST /offers/:id/approve
// Если выплата не прошла, статус уже completed: ответ содержит и предложение, и ошибку выплаты.
func (h *OfferHandler) ApproveWork(c *gin.Context) {
	actor, offerID, ok := actorAndID(c)
	if !ok {
		return
	}

	offer, err := h.offers.ApproveWork(c.Request.Context(), actor, offerID)
	if err != nil {
		if offer == nil {
			common.Fail(c, err)
			return
		}
		status, message := middleware.Resolve(err)
		c.JSON(status, gin.H{"error": message, "offer": offer})
		return
	}
	c.JSON(http.StatusOK, offer)
}

// RequestRevision POST /offers/:id/revision
func (h *OfferHandler) RequestRevision(c *gin.Context) {
	actor, offerID, ok := actorAndID(c)
	if !ok {
		return
	}

	offer, err := h.offers.RequestRevision(c.Request.Context(), actor, offerID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}
