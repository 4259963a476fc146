package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Posting - публикация покупателя. Источник истины - внешний реестр, здесь только нужные поля.
type Posting struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	OwnerID   uuid.UUID       `db:"owner_id" json:"owner_id"`
	Title     string          `db:"title" json:"title"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Deadline  *time.Time      `db:"deadline" json:"deadline,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ProviderOrderStatus - статус записи в списке заказов исполнителя.
type ProviderOrderStatus string

const (
	ProviderOrderInProgress ProviderOrderStatus = "in_progress"
	ProviderOrderDelivered  ProviderOrderStatus = "delivered"
	ProviderOrderCompleted  ProviderOrderStatus = "completed"
)

// ProviderOrder - заказ в кабинете исполнителя, ключ - предложение.
type ProviderOrder struct {
	OfferID    uuid.UUID           `db:"offer_id" json:"offer_id"`
	ProviderID uuid.UUID           `db:"provider_id" json:"provider_id"`
	PostingID  uuid.UUID           `db:"posting_id" json:"posting_id"`
	Amount     decimal.Decimal     `db:"amount" json:"amount"`
	Status     ProviderOrderStatus `db:"status" json:"status"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// NewProviderOrder собирает запись заказа из предложения.
func NewProviderOrder(offer *Offer, status ProviderOrderStatus) ProviderOrder {
	return ProviderOrder{
		OfferID:    offer.ID,
		ProviderID: offer.ProviderID,
		PostingID:  offer.PostingID,
		Amount:     offer.CurrentAmount,
		Status:     status,
	}
}

// Notification - сохранённое уведомление пользователя.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Типы событий уведомлений.
const (
	EventOfferSubmitted     = "offer.submitted"
	EventOfferAmountUpdated = "offer.amount_updated"
	EventOfferAccepted      = "offer.accepted"
	EventOfferRejected      = "offer.rejected"
	EventPaymentHeld        = "payment.held"
	EventPaymentReturned    = "payment.returned"
	EventPaymentReleased    = "payment.released"
	EventDeliverySubmitted  = "delivery.submitted"
	EventDeliveryAccepted   = "delivery.accepted"
	EventDeadlineMissed     = "delivery.deadline_missed"
	EventFeedbackReceived   = "feedback.received"
	EventPostingDeleted     = "posting.deleted"
)

// NotificationMessage - то, что сервисы отдают в очередь уведомлений.
type NotificationMessage struct {
	Event     string    `json:"event"`
	OfferID   uuid.UUID `json:"offer_id"`
	PostingID uuid.UUID `json:"posting_id"`
	Text      string    `json:"text"`
}

// NewOfferMessage заполняет идентификаторы из предложения.
func NewOfferMessage(offer *Offer, event, text string) NotificationMessage {
	return NotificationMessage{
		Event:     event,
		OfferID:   offer.ID,
		PostingID: offer.PostingID,
		Text:      text,
	}
}
