package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/offer-escrow/internal/dto"
	"github.com/ignatzorin/offer-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/service"
)

// EscrowHandler обслуживает удержание оплаты.
type EscrowHandler struct {
	escrow *service.EscrowService
}

// NewEscrowHandler создаёт хэндлер удержаний.
func NewEscrowHandler(escrow *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrow}
}

// CreateHold POST /api/offers/:id/hold
func (h *EscrowHandler) CreateHold(c *gin.Context) {
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

	var req dto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "укажите сумму и способ оплаты")
		return
	}
	rail, ok := models.ParseEscrowRail(req.Method)
	if !ok {
		common.RespondBadRequest(c, "неизвестный способ оплаты")
		return
	}

	result, err := h.escrow.CreateHold(c.Request.Context(), offerID, userID, req.Amount, rail)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// FinalizeHold POST /api/offers/:id/hold/finalize
// Если покупателю нужно завершить оплату, отвечает 202 со статусом шлюза.
func (h *EscrowHandler) FinalizeHold(c *gin.Context) {
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

	var req dto.FinalizeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "reference обязателен")
		return
	}

	result, err := h.escrow.FinalizeHold(c.Request.Context(), offerID, userID, req.Reference)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Completed() {
		status = http.StatusAccepted
	}
	c.JSON(status, result)
}

// GetEscrow GET /api/offers/:id/escrow
func (h *EscrowHandler) GetEscrow(c *gin.Context) {
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

	records, err := h.escrow.GetEscrow(c.Request.Context(), offerID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	if records == nil {
		records = []models.EscrowRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
