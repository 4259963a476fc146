package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/offer-escrow/internal/models"
)

func TestOfferResponse_BothAccepted(t *testing.T) {
	now := time.Now()
	offer := &models.Offer{
		Status:             models.OfferStatusAccepted,
		PaymentStatus:      models.PaymentStatusUnpaid,
		ProviderAcceptedAt: &now,
		BuyerAcceptedAt:    &now,
	}

	raw, err := json.Marshal(NewOfferResponse(offer))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, true, body["both_accepted"])
	assert.Equal(t, "accepted", body["status"])
}

func TestNewOfferListResponse(t *testing.T) {
	list := NewOfferListResponse([]models.Offer{{}, {}})
	assert.Len(t, list, 2)
	assert.False(t, list[0].BothAccepted)

	assert.NotNil(t, NewOfferListResponse(nil))
}
