package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/offer-escrow/internal/goroutine"
	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/metrics"
	"github.com/ignatzorin/offer-escrow/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

// Broadcaster доставляет событие в открытые соединения пользователя.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// NotificationService сохраняет уведомления и отправляет их через WebSocket.
type NotificationService struct {
	repo    NotificationRepository
	hub     Broadcaster
	timeout time.Duration
	spawn   func(func())
}

// NewNotificationService создаёт новый сервис уведомлений. hub может быть nil.
func NewNotificationService(repo NotificationRepository, hub Broadcaster) *NotificationService {
	return &NotificationService{
		repo:    repo,
		hub:     hub,
		timeout: 5 * time.Second,
		spawn:   goroutine.SafeGo,
	}
}

// Enqueue доставляет уведомление в фоне. Ошибки только логируются.
func (s *NotificationService) Enqueue(recipientID uuid.UUID, msg models.NotificationMessage) {
	s.spawn(func() {
		if err := s.deliver(recipientID, msg); err != nil {
			metrics.SecondaryFailures.WithLabelValues("notification").Inc()
			logger.Log.WithFields(logrus.Fields{
				"user_id":  recipientID,
				"event":    msg.Event,
				"offer_id": msg.OfferID,
				"error":    err.Error(),
			}).Warn("Notification delivery failed")
		}
	})
}

func (s *NotificationService) deliver(recipientID uuid.UUID, msg models.NotificationMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{
		UserID:  recipientID,
		Payload: payload,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(recipientID, msg.Event, msg); err != nil {
			return fmt.Errorf("notification service: broadcast %w", err)
		}
	}
	return nil
}

// ListUnread возвращает непрочитанные уведомления пользователя.
func (s *NotificationService) ListUnread(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	return s.repo.ListUnread(ctx, userID, limit)
}
