package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/offer-escrow/internal/http/handlers/common"
	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/service"
)

// NotificationHandler отдаёт сохранённые уведомления.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler создаёт хэндлер уведомлений.
func NewNotificationHandler(service *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListUnread GET /api/notifications
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	items, err := h.service.ListUnread(c.Request.Context(), userID, common.GetLimit(c))
	if err != nil {
		common.RespondAppError(c, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомления"))
		return
	}

	if items == nil {
		items = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}
