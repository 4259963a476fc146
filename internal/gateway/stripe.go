package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/ignatzorin/offer-escrow/internal/models"
)

// StripeGateway удерживает деньги через PaymentIntent с ручным списанием.
type StripeGateway struct {
	api     *client.API
	timeout time.Duration
}

// NewStripeGateway создаёт клиента Stripe.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &StripeGateway{
		api:     client.New(secretKey, nil),
		timeout: timeout,
	}
}

// CreateHold создаёт PaymentIntent на точную сумму без автоматического списания.
func (g *StripeGateway) CreateHold(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*models.GatewayHold, error) {
	minor, err := MinorUnits(amount)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(minor),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return toHold(intent), nil
}

// Retrieve возвращает текущее состояние удержания.
func (g *StripeGateway) Retrieve(ctx context.Context, id string) (*models.GatewayHold, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent %s: %w", id, err)
	}
	return toHold(intent), nil
}

// Capture списывает удержанную сумму.
func (g *StripeGateway) Capture(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := g.api.PaymentIntents.Capture(id, params); err != nil {
		return fmt.Errorf("stripe: capture payment intent %s: %w", id, err)
	}
	return nil
}

// Cancel снимает удержание.
func (g *StripeGateway) Cancel(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := g.api.PaymentIntents.Cancel(id, params); err != nil {
		return fmt.Errorf("stripe: cancel payment intent %s: %w", id, err)
	}
	return nil
}

// Refund возвращает списанные деньги покупателю.
func (g *StripeGateway) Refund(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{PaymentIntent: stripe.String(id)}
	params.Context = ctx

	if _, err := g.api.Refunds.New(params); err != nil {
		return fmt.Errorf("stripe: refund payment intent %s: %w", id, err)
	}
	return nil
}

// MinorUnits переводит сумму в копейки/центы. Дробные копейки не допускаются.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("stripe: сумма должна быть положительной, получено %s", amount)
	}

	shifted := amount.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("stripe: сумма %s содержит больше двух знаков после запятой", amount)
	}
	return shifted.IntPart(), nil
}

func toHold(intent *stripe.PaymentIntent) *models.GatewayHold {
	return &models.GatewayHold{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       toStatus(intent.Status),
	}
}

func toStatus(status stripe.PaymentIntentStatus) models.GatewayStatus {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return models.GatewayStatusRequiresPaymentMethod
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return models.GatewayStatusRequiresConfirmation
	case stripe.PaymentIntentStatusRequiresAction:
		return models.GatewayStatusRequiresAction
	case stripe.PaymentIntentStatusProcessing:
		return models.GatewayStatusProcessing
	case stripe.PaymentIntentStatusRequiresCapture:
		return models.GatewayStatusRequiresCapture
	case stripe.PaymentIntentStatusSucceeded:
		return models.GatewayStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return models.GatewayStatusCanceled
	default:
		return models.GatewayStatus(status)
	}
}
