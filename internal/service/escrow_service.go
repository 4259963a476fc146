package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/offer-escrow/internal/logger"
	"github.com/ignatzorin/offer-escrow/internal/metrics"
	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/offer-escrow/internal/repository"
)

// HoldResult - ответ на создание или подтверждение удержания.
type HoldResult struct {
	Rail         models.EscrowRail `json:"rail"`
	Reference    string            `json:"reference"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Status       string            `json:"status"`
	Offer        *models.Offer     `json:"offer,omitempty"`
}

// Completed - деньги удержаны, действий покупателя больше не нужно.
func (r *HoldResult) Completed() bool {
	return r.Status == string(models.EscrowStatusHeld)
}

// EscrowService управляет движением денег по предложению.
type EscrowService struct {
	offers   OfferRepository
	escrows  EscrowRepository
	ledger   ProviderLedger
	gateway  PaymentGateway
	notifier Notifier
	locks    *OfferLocks
	currency string
	now      func() time.Time
}

// NewEscrowService создаёт сервис удержаний. gateway может быть nil, тогда доступна только офлайн-оплата.
func NewEscrowService(offers OfferRepository, escrows EscrowRepository, ledger ProviderLedger, gateway PaymentGateway, notifier Notifier, locks *OfferLocks, currency string) *EscrowService {
	if currency == "" {
		currency = "usd"
	}
	return &EscrowService{
		offers:   offers,
		escrows:  escrows,
		ledger:   ledger,
		gateway:  gateway,
		notifier: notifier,
		locks:    locks,
		currency: currency,
		now:      time.Now,
	}
}

// GatewayConfigured сообщает, подключён ли платёжный шлюз.
func (s *EscrowService) GatewayConfigured() bool {
	return s.gateway != nil
}

// CreateHold начинает удержание оплаты покупателем на точную текущую сумму.
func (s *EscrowService) CreateHold(ctx context.Context, offerID, buyerID uuid.UUID, amount decimal.Decimal, rail models.EscrowRail) (*HoldResult, error) {
	if rail != models.EscrowRailGateway && rail != models.EscrowRailOffline {
		return nil, apperror.ErrUnknownRail
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
	if !payable(offer) {
		return nil, apperror.ErrNotPayable
	}
	if offer.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, apperror.ErrAlreadyPaid
	}
	if !amount.Equal(offer.CurrentAmount) {
		return nil, apperror.ErrAmountMismatch
	}
	if rail == models.EscrowRailGateway && s.gateway == nil {
		return nil, apperror.ErrGatewayUnavailable
	}

	if err := s.supersedePending(ctx, offer); err != nil {
		return nil, err
	}

	if rail == models.EscrowRailOffline {
		return s.holdOffline(ctx, offer)
	}
	return s.holdViaGateway(ctx, offer)
}

// supersedePending отменяет незавершённое удержание шлюза, оставшееся от прошлой попытки.
func (s *EscrowService) supersedePending(ctx context.Context, offer *models.Offer) error {
	record, err := s.liveRecord(ctx, offer.ID)
	if err != nil || record == nil {
		return err
	}
	if record.Status != models.EscrowStatusPending {
		return apperror.ErrAlreadyPaid
	}

	if s.gateway != nil {
		if err := s.gateway.Cancel(ctx, record.ExternalReference); err != nil {
			s.logGatewayError("cancel", record, err)
		}
	}
	return s.transition(ctx, record, models.EscrowStatusCanceled)
}

func (s *EscrowService) holdViaGateway(ctx context.Context, offer *models.Offer) (*HoldResult, error) {
	hold, err := s.gateway.CreateHold(ctx, offer.CurrentAmount, s.currency, map[string]string{
		"offer_id":   offer.ID.String(),
		"posting_id": offer.PostingID.String(),
		"buyer_id":   offer.BuyerID.String(),
	})
	metrics.ObserveEscrow("create_hold", string(models.EscrowRailGateway), err)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeExternalCall, "платёжный шлюз не создал удержание")
	}

	record := &models.EscrowRecord{
		ID:                uuid.New(),
		OfferID:           offer.ID,
		ExternalReference: hold.ID,
		Amount:            offer.CurrentAmount,
		Currency:          s.currency,
		Rail:              models.EscrowRailGateway,
		Status:            models.EscrowStatusPending,
	}
	if err := s.createRecord(ctx, record); err != nil {
		if cancelErr := s.gateway.Cancel(ctx, hold.ID); cancelErr != nil {
			s.logGatewayError("cancel", record, cancelErr)
		}
		return nil, err
	}

	return &HoldResult{
		Rail:         models.EscrowRailGateway,
		Reference:    hold.ID,
		ClientSecret: hold.ClientSecret,
		Status:       string(hold.Status),
	}, nil
}

func (s *EscrowService) holdOffline(ctx context.Context, offer *models.Offer) (*HoldResult, error) {
	record := &models.EscrowRecord{
		ID:                uuid.New(),
		OfferID:           offer.ID,
		ExternalReference: models.OfflineReferencePrefix + uuid.NewString(),
		Amount:            offer.CurrentAmount,
		Currency:          s.currency,
		Rail:              models.EscrowRailOffline,
		Status:            models.EscrowStatusHeld,
	}
	err := s.createRecord(ctx, record)
	metrics.ObserveEscrow("create_hold", string(models.EscrowRailOffline), err)
	if err != nil {
		return nil, err
	}

	if err := s.applyHold(ctx, offer, record.ExternalReference); err != nil {
		secondary("escrow_rollback", offer.ID, s.transition(ctx, record, models.EscrowStatusCanceled))
		return nil, err
	}

	return &HoldResult{
		Rail:      models.EscrowRailOffline,
		Reference: record.ExternalReference,
		Status:    string(models.EscrowStatusHeld),
		Offer:     offer,
	}, nil
}

// FinalizeHold подтверждает удержание шлюза после действий покупателя.
func (s *EscrowService) FinalizeHold(ctx context.Context, offerID, buyerID uuid.UUID, reference string) (*HoldResult, error) {
	unlock := s.locks.Lock(offerID)
	defer unlock()

	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if offer.BuyerID != buyerID {
		return nil, apperror.ErrForbidden
	}

	if offer.PaymentStatus == models.PaymentStatusHeld && offer.PaymentReference != nil && *offer.PaymentReference == reference {
		return &HoldResult{
			Rail:      models.EscrowRailGateway,
			Reference: reference,
			Status:    string(models.EscrowStatusHeld),
			Offer:     offer,
		}, nil
	}
	if offer.PaymentStatus != models.PaymentStatusUnpaid {
		return nil, apperror.ErrAlreadyPaid
	}
	if !payable(offer) {
		return nil, apperror.ErrNotPayable
	}
	if s.gateway == nil {
		return nil, apperror.ErrGatewayUnavailable
	}

	record, err := s.liveRecord(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	if record == nil || record.Status != models.EscrowStatusPending || record.ExternalReference != reference {
		return nil, apperror.ErrEscrowNotFound
	}

	hold, err := s.gateway.Retrieve(ctx, reference)
	if err != nil {
		metrics.ObserveEscrow("finalize_hold", string(record.Rail), err)
		return nil, apperror.Wrap(err, apperror.ErrCodeExternalCall, "не удалось получить статус платежа")
	}

	switch {
	case hold.Status.NeedsClientAction():
		metrics.EscrowOperations.WithLabelValues("finalize_hold", string(record.Rail), metrics.ResultPending).Inc()
		return &HoldResult{
			Rail:         models.EscrowRailGateway,
			Reference:    reference,
			ClientSecret: hold.ClientSecret,
			Status:       string(hold.Status),
		}, nil
	case hold.Status == models.GatewayStatusCanceled:
		metrics.ObserveEscrow("finalize_hold", string(record.Rail), apperror.ErrHoldCanceled)
		if err := s.transition(ctx, record, models.EscrowStatusCanceled); err != nil {
			return nil, err
		}
		return nil, apperror.ErrHoldCanceled
	}

	if err := s.transition(ctx, record, models.EscrowStatusHeld); err != nil {
		return nil, err
	}
	if err := s.applyHold(ctx, offer, reference); err != nil {
		return nil, err
	}
	metrics.ObserveEscrow("finalize_hold", string(record.Rail), nil)

	return &HoldResult{
		Rail:      models.EscrowRailGateway,
		Reference: reference,
		Status:    string(models.EscrowStatusHeld),
		Offer:     offer,
	}, nil
}

// applyHold отражает удержание в предложении: оплата считается принятием со стороны покупателя.
func (s *EscrowService) applyHold(ctx context.Context, offer *models.Offer, reference string) error {
	previous := offer.Status
	now := s.now()

	offer.PaymentStatus = models.PaymentStatusHeld
	offer.PaymentReference = &reference
	if offer.BuyerAcceptedAt == nil {
		offer.BuyerAcceptedAt = &now
	}
	orderStatus := models.ProviderOrderInProgress
	if offer.Status == models.OfferStatusDelivered {
		// Работа сдана до оплаты, статус не откатывается.
		orderStatus = models.ProviderOrderDelivered
	} else {
		offer.Status = models.OfferStatusAccepted
	}

	if err := saveOffer(ctx, s.offers, offer, previous); err != nil {
		return err
	}

	secondary("provider_order", offer.ID, s.ledger.UpsertOrder(ctx, models.NewProviderOrder(offer, orderStatus)))
	notify(s.notifier, offer.BuyerID, models.NewOfferMessage(offer, models.EventPaymentHeld,
		"Оплата удержана до сдачи работы"))
	notify(s.notifier, offer.ProviderID, models.NewOfferMessage(offer, models.EventPaymentHeld,
		"Покупатель внёс оплату, можно приступать к работе"))
	return nil
}

// CaptureAndRelease списывает удержание при приёмке работы. Вызывающий держит блокировку предложения.
// Уже списанное удержание повторно не списывается.
func (s *EscrowService) CaptureAndRelease(ctx context.Context, offer *models.Offer) (*models.EscrowRecord, error) {
	record, err := s.liveRecord(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, apperror.ErrNoHold
	}

	switch record.Status {
	case models.EscrowStatusCaptured:
		return record, nil
	case models.EscrowStatusHeld:
	default:
		return nil, apperror.ErrNoHold
	}

	if record.Rail == models.EscrowRailGateway {
		if s.gateway == nil {
			return nil, apperror.ErrGatewayUnavailable
		}
		err := s.gateway.Capture(ctx, record.ExternalReference)
		metrics.ObserveEscrow("capture", string(record.Rail), err)
		if err != nil {
			s.logGatewayError("capture", record, err)
			return nil, apperror.Wrap(err, apperror.ErrCodeExternalCall, "платёжный шлюз не списал удержание")
		}
	} else {
		metrics.ObserveEscrow("capture", string(record.Rail), nil)
	}

	if err := s.transition(ctx, record, models.EscrowStatusCaptured); err != nil {
		return nil, err
	}
	return record, nil
}

// CheckReversible возвращает GatewayUnavailable, если снять удержание предложения сейчас нельзя.
func (s *EscrowService) CheckReversible(ctx context.Context, offerID uuid.UUID) error {
	record, err := s.liveRecord(ctx, offerID)
	if err != nil {
		return err
	}
	if record != nil && record.Rail == models.EscrowRailGateway && s.gateway == nil {
		return apperror.ErrGatewayUnavailable
	}
	return nil
}

// Reverse отменяет или возвращает активное удержание. Возвращает статус записи до отмены,
// пустой статус означает, что удержания не было. Вызывающий держит блокировку предложения.
// Сбой вызова шлюза логируется и не мешает локальному переходу.
func (s *EscrowService) Reverse(ctx context.Context, offer *models.Offer) (models.EscrowStatus, error) {
	record, err := s.liveRecord(ctx, offer.ID)
	if err != nil || record == nil {
		return "", err
	}
	if record.Rail == models.EscrowRailGateway && s.gateway == nil {
		return "", apperror.ErrGatewayUnavailable
	}

	prior := record.Status
	switch prior {
	case models.EscrowStatusPending, models.EscrowStatusHeld:
		if record.Rail == models.EscrowRailGateway {
			err := s.gateway.Cancel(ctx, record.ExternalReference)
			metrics.ObserveEscrow("cancel", string(record.Rail), err)
			if err != nil {
				s.logGatewayError("cancel", record, err)
			}
		} else {
			metrics.ObserveEscrow("cancel", string(record.Rail), nil)
		}
		if err := s.transition(ctx, record, models.EscrowStatusCanceled); err != nil {
			return "", err
		}

	case models.EscrowStatusCaptured:
		if record.Rail == models.EscrowRailGateway {
			err := s.gateway.Refund(ctx, record.ExternalReference)
			metrics.ObserveEscrow("refund", string(record.Rail), err)
			if err != nil {
				s.logGatewayError("refund", record, err)
			}
		} else {
			metrics.ObserveEscrow("refund", string(record.Rail), nil)
		}
		if err := s.transition(ctx, record, models.EscrowStatusRefunded); err != nil {
			return "", err
		}

		_, debitErr := s.ledger.Debit(ctx, offer.ProviderID, record.Amount)
		if errors.Is(debitErr, repository.ErrProviderNotFound) {
			debitErr = nil
		}
		secondary("provider_earnings", offer.ID, debitErr)
		secondary("provider_order", offer.ID, s.ledger.RemoveOrder(ctx, offer.ID))
	}

	return prior, nil
}

// GetEscrow возвращает историю удержаний участнику сделки.
func (s *EscrowService) GetEscrow(ctx context.Context, offerID, userID uuid.UUID) ([]models.EscrowRecord, error) {
	offer, err := loadOffer(ctx, s.offers, offerID)
	if err != nil {
		return nil, err
	}
	if _, ok := offer.ActorOf(userID); !ok {
		return nil, apperror.ErrForbidden
	}

	records, err := s.escrows.ListByOffer(ctx, offerID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить историю оплаты")
	}
	return records, nil
}

// payable - оплатить можно до завершения, в том числе сданную без оплаты работу.
func payable(offer *models.Offer) bool {
	switch offer.Status {
	case models.OfferStatusPending, models.OfferStatusAccepted, models.OfferStatusDelivered:
		return true
	default:
		return false
	}
}

func (s *EscrowService) liveRecord(ctx context.Context, offerID uuid.UUID) (*models.EscrowRecord, error) {
	record, err := s.escrows.GetLiveByOffer(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrEscrowNotFound) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить удержание")
	}
	return record, nil
}

func (s *EscrowService) createRecord(ctx context.Context, record *models.EscrowRecord) error {
	if err := s.escrows.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrEscrowExists) {
			return apperror.ErrAlreadyPaid
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить удержание")
	}
	return nil
}

func (s *EscrowService) transition(ctx context.Context, record *models.EscrowRecord, to models.EscrowStatus) error {
	now := s.now()
	if err := s.escrows.UpdateStatus(ctx, record.ID, record.Status, to, now); err != nil {
		if errors.Is(err, repository.ErrEscrowTransition) {
			return apperror.Wrap(err, apperror.ErrCodeConflict, "статус удержания изменился, повторите запрос")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить удержание")
	}

	record.Status = to
	record.UpdatedAt = now
	if to == models.EscrowStatusCaptured {
		record.CapturedAt = &now
	}
	return nil
}

func (s *EscrowService) logGatewayError(operation string, record *models.EscrowRecord, err error) {
	logger.Log.WithFields(logrus.Fields{
		"operation": operation,
		"offer_id":  record.OfferID,
		"reference": record.ExternalReference,
		"error":     err.Error(),
	}).Error("Payment gateway call failed")
}
