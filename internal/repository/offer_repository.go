package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/repository/common"
)

var (
	// ErrOfferNotFound возвращается, когда предложение не найдено.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrOfferExists - исполнитель уже откликнулся на публикацию.
	ErrOfferExists = errors.New("offer already exists for posting and provider")
	// ErrStaleOffer - версия строки изменилась между чтением и записью.
	ErrStaleOffer = errors.New("offer version is stale")
)

const offerUniqueConstraint = "offers_posting_provider_key"

// OfferRepository хранит предложения в PostgreSQL.
type OfferRepository struct {
	db *sqlx.DB
}

// NewOfferRepository создаёт экземпляр репозитория.
func NewOfferRepository(db *sqlx.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// Create сохраняет новое предложение.
func (r *OfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	query := `
		INSERT INTO offers (
			id, posting_id, provider_id, buyer_id, original_amount, current_amount,
			negotiation_history, status, payment_status, version
		)
		VALUES (
			:id, :posting_id, :provider_id, :buyer_id, :original_amount, :current_amount,
			:negotiation_history, :status, :payment_status, 1
		)
		RETURNING version, created_at, updated_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, offer)
	if err != nil {
		if common.IsUniqueViolation(err, offerUniqueConstraint) {
			return ErrOfferExists
		}
		return fmt.Errorf("offer repository: create %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&offer.Version, &offer.CreatedAt, &offer.UpdatedAt); err != nil {
			return fmt.Errorf("offer repository: create scan %w", err)
		}
	}

	return rows.Err()
}

// GetByID возвращает предложение по идентификатору.
func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return common.GetByID[models.Offer](ctx, r.db, "offers", id, ErrOfferNotFound)
}

// ListByPosting возвращает все предложения по публикации.
func (r *OfferRepository) ListByPosting(ctx context.Context, postingID uuid.UUID) ([]models.Offer, error) {
	var offers []models.Offer
	query := `SELECT * FROM offers WHERE posting_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &offers, query, postingID); err != nil {
		return nil, fmt.Errorf("offer repository: list by posting %w", err)
	}
	return offers, nil
}

// Update записывает изменения, если версия строки не изменилась с момента чтения.
func (r *OfferRepository) Update(ctx context.Context, offer *models.Offer) error {
	query := `
		UPDATE offers SET
			current_amount = :current_amount,
			negotiation_history = :negotiation_history,
			provider_accepted_at = :provider_accepted_at,
			buyer_accepted_at = :buyer_accepted_at,
			status = :status,
			payment_status = :payment_status,
			payment_reference = :payment_reference,
			delivery_link = :delivery_link,
			delivered_at = :delivered_at,
			feedback_given = :feedback_given,
			feedback_rating = :feedback_rating,
			feedback_comment = :feedback_comment,
			version = version + 1,
			updated_at = NOW()
		WHERE id = :id AND version = :version
	`

	result, err := r.db.NamedExecContext(ctx, query, offer)
	if err != nil {
		return fmt.Errorf("offer repository: update %w", err)
	}

	if err := common.ExpectAffected(result, ErrStaleOffer); err != nil {
		if !errors.Is(err, ErrStaleOffer) {
			return fmt.Errorf("offer repository: update %w", err)
		}

		var exists bool
		if qErr := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM offers WHERE id = $1)`, offer.ID); qErr == nil && !exists {
			return ErrOfferNotFound
		}
		return ErrStaleOffer
	}

	offer.Version++
	return nil
}

// Delete удаляет одно предложение.
func (r *OfferRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("offer repository: delete %w", err)
	}
	return common.ExpectAffected(result, ErrOfferNotFound)
}
