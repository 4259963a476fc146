package dto

import (
	"github.com/ignatzorin/offer-escrow/internal/models"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse - ответ с сообщением и данными.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OfferResponse дополняет предложение вычисляемым полем both_accepted.
type OfferResponse struct {
	*models.Offer
	BothAccepted bool `json:"both_accepted"`
}

// NewOfferResponse создаёт OfferResponse из предложения.
func NewOfferResponse(offer *models.Offer) *OfferResponse {
	return &OfferResponse{
		Offer:        offer,
		BothAccepted: offer.BothAccepted(),
	}
}

// NewOfferListResponse оборачивает список предложений.
func NewOfferListResponse(offers []models.Offer) []*OfferResponse {
	result := make([]*OfferResponse, 0, len(offers))
	for i := range offers {
		result = append(result, NewOfferResponse(&offers[i]))
	}
	return result
}
