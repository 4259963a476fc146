package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/repository"
)

// CleanupReport - итог удаления публикации.
type CleanupReport struct {
	PostingID     uuid.UUID `json:"posting_id"`
	OffersRemoved int64     `json:"offers_removed"`
	HoldsCanceled int       `json:"holds_canceled"`
	Refunded      int       `json:"refunded"`
}

// CleanupService снимает деньги и удаляет предложения при удалении публикации.
type CleanupService struct {
	offers   OfferRepository
	postings PostingRegistry
	ledger   ProviderLedger
	escrow   EscrowSettler
	notifier Notifier
	locks    *OfferLocks
}

// NewCleanupService создаёт сервис каскадного удаления.
func NewCleanupService(offers OfferRepository, postings PostingRegistry, ledger ProviderLedger, escrow EscrowSettler, notifier Notifier, locks *OfferLocks) *CleanupService {
	return &CleanupService{
		offers:   offers,
		postings: postings,
		ledger:   ledger,
		escrow:   escrow,
		notifier: notifier,
		locks:    locks,
	}
}

// OnPostingDeleted удаляет публикацию владельца вместе со всеми предложениями.
// Если удержание шлюза снять нечем, ничего не меняется.
func (s *CleanupService) OnPostingDeleted(ctx context.Context, postingID, requesterID uuid.UUID) (*CleanupReport, error) {
	posting, err := loadPosting(ctx, s.postings, postingID)
	if err != nil {
		return nil, err
	}
	if posting.OwnerID != requesterID {
		return nil, apperror.ErrForbidden
	}

	report := &CleanupReport{PostingID: postingID}
	// Предложения, созданные во время удаления, попадают в следующий проход.
	for first := true; ; first = false {
		offers, err := s.offers.ListByPosting(ctx, postingID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
		}
		if len(offers) == 0 {
			break
		}

		for i := range offers {
			if err := s.escrow.CheckReversible(ctx, offers[i].ID); err != nil {
				if !first {
					logger.Log.WithField("posting_id", postingID).Warn("Posting cleanup stopped halfway")
				}
				return nil, err
			}
		}

		for i := range offers {
			prior, removed, err := s.unwind(ctx, offers[i].ID, posting)
			if err != nil {
				return nil, err
			}
			if removed {
				report.OffersRemoved++
			}
			switch prior {
			case models.EscrowStatusPending, models.EscrowStatusHeld:
				report.HoldsCanceled++
			case models.EscrowStatusCaptured:
				report.Refunded++
			}
		}
	}

	if err := s.postings.DeletePosting(ctx, postingID); err != nil && !errors.Is(err, repository.ErrPostingNotFound) {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить публикацию")
	}

	logger.Log.WithFields(logrus.Fields{
		"posting_id":     postingID,
		"offers_removed": report.OffersRemoved,
		"holds_canceled": report.HoldsCanceled,
		"refunded":       report.Refunded,
	}).Info("Posting deleted")

	return report, nil
}

// unwind перечитывает предложение под блокировкой, снимает деньги, удаляет его и уведомляет стороны.
// Операции, ждавшие блокировку, после этого получают NotFound.
func (s *CleanupService) unwind(ctx context.Context, offerID uuid.UUID, posting *models.Posting) (models.EscrowStatus, bool, error) {
	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if errors.Is(err, apperror.ErrOfferNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	prior, err := s.escrow.Reverse(ctx, offer)
	if err != nil {
		return "", false, err
	}

	if err := s.offers.Delete(ctx, offer.ID); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return prior, false, nil
		}
		return "", false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить предложение")
	}

	secondary("provider_order", offer.ID, s.ledger.RemoveOrder(ctx, offer.ID))

	title := "«" + posting.Title + "»"
	switch prior {
	case "":
		notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventPostingDeleted,
			"Публикация "+title+" удалена, предложение закрыто"))
	case models.EscrowStatusCaptured:
		notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventPostingDeleted,
			"Публикация "+title+" удалена, оплата возвращена покупателю и списана с заработка"))
		notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventPaymentReturned,
			"Публикация "+title+" удалена, оплата возвращена"))
	default:
		notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventPostingDeleted,
			"Публикация "+title+" удалена, удержание оплаты снято"))
		notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventPaymentReturned,
			"Публикация "+title+" удалена, удержание оплаты снято"))
	}

	return prior, true, nil
}
