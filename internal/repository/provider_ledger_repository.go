package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/repository/common"
)

// ErrProviderNotFound возвращается, когда у исполнителя нет профиля.
var ErrProviderNotFound = errors.New("provider profile not found")

// ProviderLedgerRepository ведёт заработок и список заказов исполнителя.
type ProviderLedgerRepository struct {
	db *sqlx.DB
}

// NewProviderLedgerRepository создаёт экземпляр репозитория.
func NewProviderLedgerRepository(db *sqlx.DB) *ProviderLedgerRepository {
	return &ProviderLedgerRepository{db: db}
}

// ProviderExists проверяет наличие профиля исполнителя.
func (r *ProviderLedgerRepository) ProviderExists(ctx context.Context, providerID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM provider_profiles WHERE user_id = $1)`, providerID); err != nil {
		return false, fmt.Errorf("provider ledger: exists %w", err)
	}
	return exists, nil
}

// UpsertOrder создаёт или обновляет запись заказа по предложению.
func (r *ProviderLedgerRepository) UpsertOrder(ctx context.Context, order models.ProviderOrder) error {
	query := `
		INSERT INTO provider_orders (offer_id, provider_id, posting_id, amount, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (offer_id) DO UPDATE SET
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, order.OfferID, order.ProviderID, order.PostingID, order.Amount, order.Status); err != nil {
		return fmt.Errorf("provider ledger: upsert order %w", err)
	}
	return nil
}

// RemoveOrder удаляет запись заказа. Отсутствие записи не ошибка.
func (r *ProviderLedgerRepository) RemoveOrder(ctx context.Context, offerID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM provider_orders WHERE offer_id = $1`, offerID); err != nil {
		return fmt.Errorf("provider ledger: remove order %w", err)
	}
	return nil
}

// Credit начисляет заработок исполнителю.
func (r *ProviderLedgerRepository) Credit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) error {
	query := `
		INSERT INTO provider_profiles (user_id, earnings)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			earnings = provider_profiles.earnings + EXCLUDED.earnings,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, providerID, amount); err != nil {
		return fmt.Errorf("provider ledger: credit %w", err)
	}
	return nil
}

// Debit списывает заработок, но не ниже нуля. Возвращает фактически списанную сумму.
func (r *ProviderLedgerRepository) Debit(ctx context.Context, providerID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	debited := decimal.Zero

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var earnings decimal.Decimal
		err := tx.GetContext(ctx, &earnings, `SELECT earnings FROM provider_profiles WHERE user_id = $1 FOR UPDATE`, providerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProviderNotFound
			}
			return fmt.Errorf("provider ledger: lock profile %w", err)
		}

		debited = decimal.Min(earnings, amount)
		if !debited.IsPositive() {
			debited = decimal.Zero
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE provider_profiles SET earnings = earnings - $1, updated_at = NOW() WHERE user_id = $2`,
			debited, providerID,
		)
		if err != nil {
			return fmt.Errorf("provider ledger: debit %w", err)
		}
		return nil
	})

	return debited, err
}
