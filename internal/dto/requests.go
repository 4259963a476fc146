package dto

import (
	"github.com/shopspring/decimal"
)

// SubmitOfferRequest - встречное предложение исполнителя.
type SubmitOfferRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Comment string          `json:"comment"`
}

// UpdateAmountRequest - новый ход в торге.
type UpdateAmountRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Comment string          `json:"comment"`
}

// CreateHoldRequest - удержание оплаты покупателем.
// Method: gateway (card) или offline.
type CreateHoldRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method" binding:"required"`
}

// FinalizeHoldRequest - подтверждение удержания шлюза.
type FinalizeHoldRequest struct {
	Reference string `json:"reference" binding:"required"`
}

// SubmitDeliveryRequest - ссылка на результат работы.
type SubmitDeliveryRequest struct {
	Link string `json:"link" binding:"required"`
}

// FeedbackRequest - отзыв покупателя.
type FeedbackRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}
