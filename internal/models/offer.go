package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OfferStatus - статус предложения исполнителя.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusDelivered OfferStatus = "delivered"
	OfferStatusCompleted OfferStatus = "completed"
	OfferStatusRejected  OfferStatus = "rejected"
)

// PaymentStatus - состояние оплаты предложения.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusReleased PaymentStatus = "released"
)

// permittedPaymentStates перечисляет допустимые сочетания статуса предложения и статуса оплаты.
var permittedPaymentStates = map[OfferStatus][]PaymentStatus{
	OfferStatusPending:   {PaymentStatusUnpaid},
	OfferStatusAccepted:  {PaymentStatusUnpaid, PaymentStatusHeld},
	OfferStatusDelivered: {PaymentStatusUnpaid, PaymentStatusHeld, PaymentStatusCaptured},
	OfferStatusCompleted: {PaymentStatusReleased},
	OfferStatusRejected:  {PaymentStatusUnpaid, PaymentStatusHeld, PaymentStatusCaptured, PaymentStatusReleased},
}

// IsValid проверяет, что статус известен.
func (s OfferStatus) IsValid() bool {
	_, ok := permittedPaymentStates[s]
	return ok
}

// Allows проверяет, допустим ли статус оплаты при данном статусе предложения.
func (s OfferStatus) Allows(p PaymentStatus) bool {
	for _, allowed := range permittedPaymentStates[s] {
		if allowed == p {
			return true
		}
	}
	return false
}

// IsFinished - работа сдана или предложение закрыто.
func (s OfferStatus) IsFinished() bool {
	return s == OfferStatusDelivered || s == OfferStatusCompleted || s == OfferStatusRejected
}

// IsFunded - деньги покупателя уже удержаны или списаны.
func (p PaymentStatus) IsFunded() bool {
	return p == PaymentStatusHeld || p == PaymentStatusCaptured || p == PaymentStatusReleased
}

// Actor - сторона переговоров.
type Actor string

const (
	ActorProvider Actor = "provider"
	ActorBuyer    Actor = "buyer"
)

// NegotiationEntry - одна запись в истории торга.
type NegotiationEntry struct {
	Actor     Actor           `json:"actor"`
	Amount    decimal.Decimal `json:"amount"`
	Comment   string          `json:"comment,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NegotiationHistory хранится в JSONB и только дополняется.
type NegotiationHistory []NegotiationEntry

// Value реализует driver.Valuer.
func (h NegotiationHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan реализует sql.Scanner.
func (h *NegotiationHistory) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*h = NegotiationHistory{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("negotiation history: неподдерживаемый тип %T", src)
	}

	var entries NegotiationHistory
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("negotiation history: %w", err)
	}
	*h = entries
	return nil
}

// Last возвращает последнюю запись истории.
func (h NegotiationHistory) Last() (NegotiationEntry, bool) {
	if len(h) == 0 {
		return NegotiationEntry{}, false
	}
	return h[len(h)-1], true
}

// Offer - встречное предложение исполнителя по публикации покупателя.
type Offer struct {
	ID                 uuid.UUID          `db:"id" json:"id"`
	PostingID          uuid.UUID          `db:"posting_id" json:"posting_id"`
	ProviderID         uuid.UUID          `db:"provider_id" json:"provider_id"`
	BuyerID            uuid.UUID          `db:"buyer_id" json:"buyer_id"`
	OriginalAmount     decimal.Decimal    `db:"original_amount" json:"original_amount"`
	CurrentAmount      decimal.Decimal    `db:"current_amount" json:"current_amount"`
	History            NegotiationHistory `db:"negotiation_history" json:"negotiation_history"`
	ProviderAcceptedAt *time.Time         `db:"provider_accepted_at" json:"provider_accepted_at,omitempty"`
	BuyerAcceptedAt    *time.Time         `db:"buyer_accepted_at" json:"buyer_accepted_at,omitempty"`
	Status             OfferStatus        `db:"status" json:"status"`
	PaymentStatus      PaymentStatus      `db:"payment_status" json:"payment_status"`
	PaymentReference   *string            `db:"payment_reference" json:"payment_reference,omitempty"`
	DeliveryLink       *string            `db:"delivery_link" json:"delivery_link,omitempty"`
	DeliveredAt        *time.Time         `db:"delivered_at" json:"delivered_at,omitempty"`
	FeedbackGiven      bool               `db:"feedback_given" json:"feedback_given"`
	FeedbackRating     *int               `db:"feedback_rating" json:"feedback_rating,omitempty"`
	FeedbackComment    *string            `db:"feedback_comment" json:"feedback_comment,omitempty"`
	Version            int64              `db:"version" json:"version"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// BothAccepted вычисляется из меток принятия, отдельно не хранится.
func (o *Offer) BothAccepted() bool {
	return o.ProviderAcceptedAt != nil && o.BuyerAcceptedAt != nil
}

// ActorOf возвращает роль пользователя в предложении.
func (o *Offer) ActorOf(userID uuid.UUID) (Actor, bool) {
	switch userID {
	case o.ProviderID:
		return ActorProvider, true
	case o.BuyerID:
		return ActorBuyer, true
	default:
		return "", false
	}
}

// Counterparty возвращает вторую сторону для указанной.
func (o *Offer) Counterparty(actor Actor) uuid.UUID {
	if actor == ActorProvider {
		return o.BuyerID
	}
	return o.ProviderID
}

// AcceptedAt возвращает метку принятия для стороны.
func (o *Offer) AcceptedAt(actor Actor) *time.Time {
	if actor == ActorProvider {
		return o.ProviderAcceptedAt
	}
	return o.BuyerAcceptedAt
}

// MarkAccepted ставит метку принятия стороны.
func (o *Offer) MarkAccepted(actor Actor, at time.Time) {
	if actor == ActorProvider {
		o.ProviderAcceptedAt = &at
		return
	}
	o.BuyerAcceptedAt = &at
}

// Negotiate добавляет запись в историю и обновляет текущую сумму.
func (o *Offer) Negotiate(actor Actor, amount decimal.Decimal, comment string, at time.Time) {
	o.History = append(o.History, NegotiationEntry{
		Actor:     actor,
		Amount:    amount,
		Comment:   comment,
		Timestamp: at,
	})
	o.CurrentAmount = amount
}

// MarkRejected закрывает предложение. Метки принятия снимаются, иначе BothAccepted разойдётся со статусом.
func (o *Offer) MarkRejected(fundsReturned bool) {
	o.Status = OfferStatusRejected
	o.ProviderAcceptedAt = nil
	o.BuyerAcceptedAt = nil
	if fundsReturned {
		o.PaymentStatus = PaymentStatusReleased
	}
}

// Validate проверяет согласованность статусов перед записью.
func (o *Offer) Validate() error {
	if !o.Status.IsValid() {
		return fmt.Errorf("offer %s: неизвестный статус %q", o.ID, o.Status)
	}
	if !o.Status.Allows(o.PaymentStatus) {
		return fmt.Errorf("offer %s: статус оплаты %q недопустим при статусе %q", o.ID, o.PaymentStatus, o.Status)
	}
	if o.BothAccepted() && (o.Status == OfferStatusPending || o.Status == OfferStatusRejected) {
		return fmt.Errorf("offer %s: принято обеими сторонами, но статус %q", o.ID, o.Status)
	}
	return nil
}
