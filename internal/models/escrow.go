package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EscrowRail - способ удержания денег.
type EscrowRail string

const (
	EscrowRailGateway EscrowRail = "gateway"
	EscrowRailOffline EscrowRail = "offline"
)

// ParseEscrowRail разбирает способ оплаты из запроса.
func ParseEscrowRail(method string) (EscrowRail, bool) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "gateway", "card":
		return EscrowRailGateway, true
	case "offline":
		return EscrowRailOffline, true
	default:
		return "", false
	}
}

// OfflineReferencePrefix отличает локальные ссылки офлайн-оплаты от идентификаторов шлюза.
const OfflineReferencePrefix = "offline_"

// IsOfflineReference проверяет префикс офлайн-ссылки.
func IsOfflineReference(ref string) bool {
	return strings.HasPrefix(ref, OfflineReferencePrefix)
}

// EscrowStatus - статус удержания.
type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "pending"
	EscrowStatusHeld     EscrowStatus = "held"
	EscrowStatusCaptured EscrowStatus = "captured"
	EscrowStatusCanceled EscrowStatus = "canceled"
	EscrowStatusRefunded EscrowStatus = "refunded"
)

// escrowTransitions - только вперёд.
var escrowTransitions = map[EscrowStatus][]EscrowStatus{
	EscrowStatusPending:  {EscrowStatusHeld, EscrowStatusCanceled},
	EscrowStatusHeld:     {EscrowStatusCaptured, EscrowStatusCanceled},
	EscrowStatusCaptured: {EscrowStatusRefunded},
}

// CanTransitionTo проверяет, возможен ли переход в новый статус.
func (s EscrowStatus) CanTransitionTo(next EscrowStatus) bool {
	for _, allowed := range escrowTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsLive - запись ещё управляет деньгами.
func (s EscrowStatus) IsLive() bool {
	return s == EscrowStatusPending || s == EscrowStatusHeld || s == EscrowStatusCaptured
}

// EscrowRecord - журнал движения денег по одному удержанию.
// Не удаляется вместе с предложением.
type EscrowRecord struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	OfferID           uuid.UUID       `db:"offer_id" json:"offer_id"`
	ExternalReference string          `db:"external_reference" json:"external_reference"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Currency          string          `db:"currency" json:"currency"`
	Rail              EscrowRail      `db:"rail" json:"rail"`
	Status            EscrowStatus    `db:"status" json:"status"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	CapturedAt        *time.Time      `db:"captured_at" json:"captured_at,omitempty"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// GatewayStatus - статус удержания на стороне платёжного шлюза.
type GatewayStatus string

const (
	GatewayStatusRequiresPaymentMethod GatewayStatus = "requires_payment_method"
	GatewayStatusRequiresConfirmation  GatewayStatus = "requires_confirmation"
	GatewayStatusRequiresAction        GatewayStatus = "requires_action"
	GatewayStatusProcessing            GatewayStatus = "processing"
	GatewayStatusRequiresCapture       GatewayStatus = "requires_capture"
	GatewayStatusSucceeded             GatewayStatus = "succeeded"
	GatewayStatusCanceled              GatewayStatus = "canceled"
)

// NeedsClientAction - покупатель ещё не завершил оплату, повторить позже.
func (s GatewayStatus) NeedsClientAction() bool {
	switch s {
	case GatewayStatusRequiresPaymentMethod, GatewayStatusRequiresConfirmation,
		GatewayStatusRequiresAction, GatewayStatusProcessing:
		return true
	default:
		return false
	}
}

// GatewayHold - удержание, созданное во внешнем шлюзе.
type GatewayHold struct {
	ID           string        `json:"id"`
	ClientSecret string        `json:"client_secret,omitempty"`
	Status       GatewayStatus `json:"status"`
}
