package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/offer-escrow/internal/dto"
	"github.com/ignatzorin/offer-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/offer-escrow/internal/service"
)

// DeliveryHandler принимает сдачу и приёмку работы.
type DeliveryHandler struct {
	delivery *service.DeliveryService
}

// NewDeliveryHandler создаёт хэндлер сдачи работы.
func NewDeliveryHandler(delivery *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{delivery: delivery}
}

// SubmitDelivery POST /api/offers/:id/delivery
func (h *DeliveryHandler) SubmitDelivery(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	offerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "ссылка на результат обязательна")
		return
	}

	offer, err := h.delivery.SubmitDelivery(c.Request.Context(), offerID, userID, req.Link)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}

// AcceptDelivery POST /api/offers/:id/delivery/accept
func (h *DeliveryHandler) AcceptDelivery(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	offerID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offer, err := h.delivery.AcceptDelivery(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}
