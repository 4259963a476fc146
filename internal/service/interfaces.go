package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/offer-escrow/internal/models"
)

// OfferRepository описывает хранилище предложений.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListByPosting(ctx context.Context, postingID uuid.UUID) ([]models.Offer, error)
	Update(ctx context.Context, offer *models.Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EscrowRepository описывает журнал удержаний.
type EscrowRepository interface {
	Create(ctx context.Context, record *models.EscrowRecord) error
	GetLiveByOffer(ctx context.Context, offerID uuid.UUID) (*models.EscrowRecord, error)
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]models.EscrowRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EscrowStatus, at time.Time) error
}

// PostingRegistry - внешний реестр публикаций.
type PostingRegistry interface {
	GetPosting(ctx context.Context, id uuid.UUID) (*models.Posting, error)
	DeletePosting(ctx context.Context, id uuid.UUID) error
}

// ProviderLedger - заработок и заказы исполнителя.
type ProviderLedger interface {
	ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error)
	UpsertOrder(ctx context.Context, order models.ProviderOrder) error
	RemoveOrder(ctx context.Context, offerID uuid.UUID) error
	Credit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) error
	Debit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

// Notifier ставит уведомление в очередь и не ждёт доставки.
type Notifier interface {
	Enqueue(recipientID uuid.UUID, msg models.NotificationMessage)
}

// PaymentGateway - внешний платёжный шлюз с ручным списанием.
type PaymentGateway interface {
	CreateHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.GatewayHold, error)
	Retrieve(ctx context.Context, id string) (*models.GatewayHold, error)
	Capture(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Refund(ctx context.Context, id string) error
}

// HoldReverser снимает или возвращает удержание по предложению.
// Вызывающий держит блокировку предложения.
type HoldReverser interface {
	Reverse(ctx context.Context, offer *models.Offer) (models.EscrowStatus, error)
}

// EscrowSettler - операции с деньгами, нужные сдаче работы и удалению публикации.
type EscrowSettler interface {
	HoldReverser
	CaptureAndRelease(ctx context.Context, offer *models.Offer) (*models.EscrowRecord, error)
	CheckReversible(ctx context.Context, offerID uuid.UUID) error
}
