package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/offer-escrow/internal/dto"
	"github.com/ignatzorin/offer-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/offer-escrow/internal/service"
)

// OfferHandler обслуживает торг по предложениям.
type OfferHandler struct {
	offers *service.OfferService
}

// NewOfferHandler создаёт хэндлер предложений.
func NewOfferHandler(offers *service.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// SubmitOffer POST /api/postings/:id/offers
func (h *OfferHandler) SubmitOffer(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	postingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	offer, err := h.offers.SubmitOffer(c.Request.Context(), postingID, userID, req.Amount, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewOfferResponse(offer))
}

// ListPostingOffers GET /api/postings/:id/offers
func (h *OfferHandler) ListPostingOffers(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}
	postingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	offers, err := h.offers.ListPostingOffers(c.Request.Context(), postingID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": dto.NewOfferListResponse(offers)})
}

// GetOffer GET /api/offers/:id
func (h *OfferHandler) GetOffer(c *gin.Context) {
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

	offer, err := h.offers.GetOffer(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}

// UpdateAmount PUT /api/offers/:id/amount
func (h *OfferHandler) UpdateAmount(c *gin.Context) {
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

	var req dto.UpdateAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "некорректное тело запроса")
		return
	}

	offer, err := h.offers.UpdateAmount(c.Request.Context(), offerID, userID, req.Amount, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}

// Accept POST /api/offers/:id/accept
func (h *OfferHandler) Accept(c *gin.Context) {
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

	offer, err := h.offers.Accept(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}

// Reject POST /api/offers/:id/reject
func (h *OfferHandler) Reject(c *gin.Context) {
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

	offer, err := h.offers.Reject(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}

// AddFeedback POST /api/offers/:id/feedback
func (h *OfferHandler) AddFeedback(c *gin.Context) {
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

	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "оценка обязательна")
		return
	}

	offer, err := h.offers.AddFeedback(c.Request.Context(), offerID, userID, req.Rating, req.Comment)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewOfferResponse(offer))
}
