package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/offer-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/offer-escrow/internal/service"
)

// PostingHandler обслуживает удаление публикации.
type PostingHandler struct {
	cleanup *service.CleanupService
}

// NewPostingHandler создаёт хэндлер публикаций.
func NewPostingHandler(cleanup *service.CleanupService) *PostingHandler {
	return &PostingHandler{cleanup: cleanup}
}

// DeletePosting DELETE /api/postings/:id
func (h *PostingHandler) DeletePosting(c *gin.Context) {
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

	report, err := h.cleanup.OnPostingDeleted(c.Request.Context(), postingID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
