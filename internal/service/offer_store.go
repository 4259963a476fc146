package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/metrics"
	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/repository"
)

func loadOffer(ctx context.Context, repo OfferRepository, id uuid.UUID) (*models.Offer, error) {
	offer, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, apperror.ErrOfferNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить предложение")
	}
	return offer, nil
}

// saveOffer проверяет таблицу допустимых статусов и пишет с проверкой версии.
func saveOffer(ctx context.Context, repo OfferRepository, offer *models.Offer, previous models.OfferStatus) error {
	if err := offer.Validate(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "недопустимое состояние предложения")
	}

	if err := repo.Update(ctx, offer); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleOffer):
			return apperror.ErrStaleOffer
		case errors.Is(err, repository.ErrOfferNotFound):
			return apperror.ErrOfferNotFound
		default:
			return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить предложение")
		}
	}

	if offer.Status != previous {
		metrics.OfferTransitions.WithLabelValues(string(offer.Status)).Inc()
	}
	return nil
}

func loadPosting(ctx context.Context, registry PostingRegistry, id uuid.UUID) (*models.Posting, error) {
	posting, err := registry.GetPosting(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostingNotFound) {
			return nil, apperror.ErrPostingNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить публикацию")
	}
	return posting, nil
}

// secondary логирует сбой второстепенного обновления. Основной переход не откатывается.
func secondary(target string, offerID uuid.UUID, err error) {
	if err == nil {
		return
	}
	metrics.SecondaryFailures.WithLabelValues(target).Inc()
	logger.Log.WithFields(logrus.Fields{
		"offer_id": offerID,
		"target":   target,
		"error":    err.Error(),
	}).Warn("Secondary update skipped")
}

// notify отправляет уведомление, если получатель задан.
func notify(n Notifier, recipientID uuid.UUID, msg models.NotificationMessage) {
	if n == nil || recipientID == uuid.Nil {
		return
	}
	n.Enqueue(recipientID, msg)
}
