package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/validation"
)

// DeliveryService принимает сдачу работы и следит за сроком публикации.
type DeliveryService struct {
	offers   OfferRepository
	postings PostingRegistry
	ledger   ProviderLedger
	escrow   EscrowSettler
	notifier Notifier
	locks    *OfferLocks
	now      func() time.Time
}

// NewDeliveryService создаёт сервис сдачи работы.
func NewDeliveryService(offers OfferRepository, postings PostingRegistry, ledger ProviderLedger, escrow EscrowSettler, notifier Notifier, locks *OfferLocks) *DeliveryService {
	return &DeliveryService{
		offers:   offers,
		postings: postings,
		ledger:   ledger,
		escrow:   escrow,
		notifier: notifier,
		locks:    locks,
		now:      time.Now,
	}
}

// SubmitDelivery принимает ссылку на результат от исполнителя.
// После срока публикации предложение отклоняется, удержание возвращается покупателю, а вызов завершается ошибкой.
func (s *DeliveryService) SubmitDelivery(ctx context.Context, offerID, providerID uuid.UUID, link string) (*models.Offer, error) {
	link = strings.TrimSpace(link)
	if err := validation.ValidateDeliveryLink(link); err != nil {
		return nil, apperror.Validation(err)
	}

	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if offer.ProviderID != providerID {
		return nil, apperror.ErrForbidden
	}

	switch offer.Status {
	case models.OfferStatusDelivered, models.OfferStatusCompleted:
		return nil, apperror.ErrOfferClosed
	case models.OfferStatusRejected:
		return nil, apperror.ErrOfferRejected
	}

	posting, err := loadPosting(ctx, s.postings, offer.PostingID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if posting.Deadline != nil && now.After(*posting.Deadline) {
		if err := s.expire(ctx, offer); err != nil {
			return nil, err
		}
		return nil, apperror.ErrDeadlinePassed
	}

	if !offer.BothAccepted() && offer.PaymentStatus != models.PaymentStatusHeld {
		return nil, apperror.ErrNotReady
	}

	previous := offer.Status
	offer.DeliveryLink = &link
	offer.DeliveredAt = &now
	offer.Status = models.OfferStatusDelivered
	// Сдача работы означает согласие исполнителя с условиями.
	if offer.ProviderAcceptedAt == nil {
		offer.ProviderAcceptedAt = &now
	}

	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return nil, err
	}

	secondary("provider_order", offer.ID, s.ledger.UpsertOrder(ctx, models.NewProviderOrder(offer, models.ProviderOrderDelivered)))
	notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventDeliverySubmitted,
		"Исполнитель сдал работу, проверьте результат"))

	return offer, nil
}

// expire отклоняет просроченное предложение и возвращает удержание.
// Если удержание снять нельзя, предложение не трогается.
func (s *DeliveryService) expire(ctx context.Context, offer *models.Offer) error {
	previous := offer.Status

	prior, err := s.escrow.Reverse(ctx, offer)
	if err != nil {
		return err
	}
	returned := prior == models.EscrowStatusHeld || prior == models.EscrowStatusCaptured

	offer.MarkRejected(returned)
	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return err
	}

	secondary("provider_order", offer.ID, s.ledger.RemoveOrder(ctx, offer.ID))

	if returned {
		notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventPaymentReturned,
			"Исполнитель не сдал работу в срок, оплата возвращена"))
	} else {
		notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventOfferRejected,
			"Исполнитель не сдал работу в срок, предложение отклонено"))
	}
	notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventDeadlineMissed,
		"Срок сдачи истёк, предложение отклонено"))

	return nil
}

// AcceptDelivery принимает работу покупателем: удержание списывается, исполнителю начисляется заработок.
// При сбое списания предложение остаётся в delivered и запрос можно повторить.
func (s *DeliveryService) AcceptDelivery(ctx context.Context, offerID, buyerID uuid.UUID) (*models.Offer, error) {
	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != models.OfferStatusDelivered {
		return nil, apperror.ErrNotDelivered
	}

	if _, err := s.escrow.CaptureAndRelease(ctx, offer); err != nil {
		return nil, err
	}

	previous := offer.Status
	offer.Status = models.OfferStatusCompleted
	offer.PaymentStatus = models.PaymentStatusReleased

	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return nil, err
	}

	secondary("provider_earnings", offer.ID, s.ledger.Credit(ctx, offer.ProviderID, offer.CurrentAmount))
	secondary("provider_order", offer.ID, s.ledger.UpsertOrder(ctx, models.NewProviderOrder(offer, models.ProviderOrderCompleted)))

	notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventDeliveryAccepted,
		"Работа принята, сделка завершена"))
	notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventPaymentReleased,
		"Работа принята, оплата зачислена: "+offer.CurrentAmount.StringFixed(2)))

	return offer, nil
}
