package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/repository"
	"github.com/ignatzorin/offer-escrow/internal/validation"
)

// OfferService ведёт предложения: торг, двустороннее принятие, отказ и отзыв.
type OfferService struct {
	offers   OfferRepository
	postings PostingRegistry
	ledger   ProviderLedger
	escrow   HoldReverser
	notifier Notifier
	locks    *OfferLocks
	now      func() time.Time
}

// NewOfferService создаёт сервис предложений.
func NewOfferService(offers OfferRepository, postings PostingRegistry, ledger ProviderLedger, escrow HoldReverser, notifier Notifier, locks *OfferLocks) *OfferService {
	return &OfferService{
		offers:   offers,
		postings: postings,
		ledger:   ledger,
		escrow:   escrow,
		notifier: notifier,
		locks:    locks,
		now:      time.Now,
	}
}

// SubmitOffer создаёт встречное предложение исполнителя.
func (s *OfferService) SubmitOffer(ctx context.Context, postingID, providerID uuid.UUID, amount decimal.Decimal, comment string) (*models.Offer, error) {
	comment = validation.SanitizeString(comment)
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateComment(comment); err != nil {
		return nil, apperror.Validation(err)
	}

	posting, err := loadPosting(ctx, s.postings, postingID)
	if err != nil {
		return nil, err
	}
	if posting.OwnerID == providerID {
		return nil, apperror.ErrOwnPosting
	}

	exists, err := s.ledger.ProviderExists(ctx, providerID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить исполнителя")
	}
	if !exists {
		return nil, apperror.ErrProviderNotFound
	}

	offer := &models.Offer{
		ID:             uuid.New(),
		PostingID:      posting.ID,
		ProviderID:     providerID,
		BuyerID:        posting.OwnerID,
		OriginalAmount: posting.Amount,
		Status:         models.OfferStatusPending,
		PaymentStatus:  models.PaymentStatusUnpaid,
	}
	offer.Negotiate(models.ActorProvider, amount, comment, s.now())

	if err := s.offers.Create(ctx, offer); err != nil {
		if errors.Is(err, repository.ErrOfferExists) {
			return nil, apperror.ErrOfferExists
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить предложение")
	}

	notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventOfferSubmitted,
		"Новое предложение по публикации «"+posting.Title+"»"))

	return offer, nil
}

// GetOffer возвращает предложение участнику сделки.
func (s *OfferService) GetOffer(ctx context.Context, offerID, userID uuid.UUID) (*models.Offer, error) {
	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if _, ok := offer.ActorOf(userID); !ok {
		return nil, apperror.ErrForbidden
	}
	return offer, nil
}

// ListPostingOffers возвращает предложения по публикации её владельцу.
func (s *OfferService) ListPostingOffers(ctx context.Context, postingID, userID uuid.UUID) ([]models.Offer, error) {
	posting, err := loadPosting(ctx, s.postings, postingID)
	if err != nil {
		return nil, err
	}
	if posting.OwnerID != userID {
		return nil, apperror.ErrForbidden
	}

	offers, err := s.offers.ListByPosting(ctx, postingID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return offers, nil
}

// UpdateAmount добавляет ход в торге. Метки принятия не сбрасываются.
func (s *OfferService) UpdateAmount(ctx context.Context, offerID, actorID uuid.UUID, amount decimal.Decimal, comment string) (*models.Offer, error) {
	comment = validation.SanitizeString(comment)
	if err := validation.ValidateAmount(amount); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateComment(comment); err != nil {
		return nil, apperror.Validation(err)
	}

	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}

	actor, ok := offer.ActorOf(actorID)
	if !ok {
		return nil, apperror.ErrForbidden
	}

	if offer.Status.IsFinished() || offer.PaymentStatus.IsFunded() {
		return nil, apperror.ErrNegotiationEnded
	}

	offer.Negotiate(actor, amount, comment, s.now())
	if err := saveOffer(ctx, s.offers, offer, offer.Status); err != nil {
		return nil, err
	}

	notify(s.notifier, offer.Counterparty(actor), models.NewOfferMessage(offer, models.EventOfferAmountUpdated,
		"Предложена новая сумма: "+amount.StringFixed(2)))

	return offer, nil
}

// Accept ставит метку принятия стороны. Когда приняли обе, предложение переходит в accepted.
func (s *OfferService) Accept(ctx context.Context, offerID, actorID uuid.UUID) (*models.Offer, error) {
	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}

	actor, ok := offer.ActorOf(actorID)
	if !ok {
		return nil, apperror.ErrForbidden
	}

	// Повторное принятие проверяется раньше статуса.
	if offer.AcceptedAt(actor) != nil {
		return nil, apperror.ErrAlreadyAccepted
	}
	switch offer.Status {
	case models.OfferStatusRejected:
		return nil, apperror.ErrOfferRejected
	case models.OfferStatusDelivered, models.OfferStatusCompleted:
		return nil, apperror.ErrOfferClosed
	}

	previous := offer.Status
	offer.MarkAccepted(actor, s.now())
	if offer.BothAccepted() && offer.Status == models.OfferStatusPending {
		offer.Status = models.OfferStatusAccepted
	}

	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return nil, err
	}

	notify(s.notifier, offer.Counterparty(actor), models.NewOfferMessage(offer, models.EventOfferAccepted,
		"Вторая сторона приняла предложение"))

	return offer, nil
}

// Reject закрывает предложение до сдачи работы и снимает удержание, если оно было.
func (s *OfferService) Reject(ctx context.Context, offerID, actorID uuid.UUID) (*models.Offer, error) {
	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}

	actor, ok := offer.ActorOf(actorID)
	if !ok {
		return nil, apperror.ErrForbidden
	}

	switch offer.Status {
	case models.OfferStatusRejected:
		return nil, apperror.ErrOfferRejected
	case models.OfferStatusDelivered, models.OfferStatusCompleted:
		return nil, apperror.ErrOfferClosed
	}

	previous := offer.Status
	reversed := false
	if s.escrow != nil {
		// Удержание снимается до закрытия предложения, ошибка прерывает отклонение.
		prior, err := s.escrow.Reverse(ctx, offer)
		if err != nil {
			return nil, err
		}
		reversed = prior == models.EscrowStatusHeld || prior == models.EscrowStatusCaptured
	}

	offer.MarkRejected(reversed)
	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return nil, err
	}

	secondary("provider_order", offer.ID, s.ledger.RemoveOrder(ctx, offer.ID))

	notify(s.notifier, offer.Counterparty(actor), models.NewOfferMessage(offer, models.EventOfferRejected,
		"Предложение отклонено"))
	if reversed {
		notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventPaymentReturned,
			"Удержанная оплата возвращена"))
	}

	return offer, nil
}

// AddFeedback сохраняет отзыв покупателя о завершённой работе. Отзыв оставляется один раз.
func (s *OfferService) AddFeedback(ctx context.Context, offerID, buyerID uuid.UUID, rating int, comment string) (*models.Offer, error) {
	comment = validation.SanitizeString(comment)
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.Validation(err)
	}
	if err := validation.ValidateComment(comment); err != nil {
		return nil, apperror.Validation(err)
	}

	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, apperror.ErrForbidden
	}
	if offer.Status != models.OfferStatusCompleted {
		return nil, apperror.ErrNotCompleted
	}
	if offer.FeedbackGiven {
		return nil, apperror.ErrFeedbackGiven
	}

	offer.FeedbackGiven = true
	offer.FeedbackRating = &rating
	if comment != "" {
		offer.FeedbackComment = &comment
	}

	if err := saveOffer(ctx, s.offers, offer, offer.Status); err != nil {
		return nil, err
	}

	notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventFeedbackReceived,
		"Покупатель оставил отзыв"))

	return offer, nil
}
