package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/offer-escrow/internal/models"
	"github.com/ignatzorin/offer-escrow/internal/repository/common"
)

var (
	// ErrEscrowNotFound возвращается, когда у предложения нет активного удержания.
	ErrEscrowNotFound = errors.New("escrow record not found")
	// ErrEscrowExists - у предложения уже есть активное удержание.
	ErrEscrowExists = errors.New("live escrow record already exists")
	// ErrEscrowTransition - переход запрещён или запись уже в другом статусе.
	ErrEscrowTransition = errors.New("escrow status transition rejected")
)

const liveEscrowConstraint = "escrow_records_live_offer_key"

// EscrowRepository ведёт журнал удержаний.
type EscrowRepository struct {
	db *sqlx.DB
}

// NewEscrowRepository создаёт экземпляр репозитория.
func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// Create добавляет запись об удержании.
func (r *EscrowRepository) Create(ctx context.Context, record *models.EscrowRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	query := `
		INSERT INTO escrow_records (id, offer_id, external_reference, amount, currency, rail, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		record.ID,
		record.OfferID,
		record.ExternalReference,
		record.Amount,
		record.Currency,
		record.Rail,
		record.Status,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, liveEscrowConstraint) {
			return ErrEscrowExists
		}
		return fmt.Errorf("escrow repository: create %w", err)
	}

	return nil
}

// GetLiveByOffer возвращает незавершённое удержание по предложению.
func (r *EscrowRepository) GetLiveByOffer(ctx context.Context, offerID uuid.UUID) (*models.EscrowRecord, error) {
	var record models.EscrowRecord
	query := `
		SELECT * FROM escrow_records
		WHERE offer_id = $1 AND status IN ('pending', 'held', 'captured')
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &record, query, offerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEscrowNotFound
		}
		return nil, fmt.Errorf("escrow repository: get live by offer %w", err)
	}
	return &record, nil
}

// ListByOffer возвращает всю историю удержаний предложения.
func (r *EscrowRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]models.EscrowRecord, error) {
	var records []models.EscrowRecord
	query := `SELECT * FROM escrow_records WHERE offer_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &records, query, offerID); err != nil {
		return nil, fmt.Errorf("escrow repository: list by offer %w", err)
	}
	return records, nil
}

// UpdateStatus переводит запись из from в to. Условие по статусу защищает от гонок.
func (r *EscrowRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EscrowStatus, at time.Time) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrEscrowTransition, from, to)
	}

	query := `
		UPDATE escrow_records SET
			status = $1,
			updated_at = $2,
			captured_at = CASE WHEN $1::text = 'captured' THEN $2 ELSE captured_at END
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("escrow repository: update status %w", err)
	}

	if err := common.ExpectAffected(result, ErrEscrowTransition); err != nil {
		return fmt.Errorf("escrow repository: %s -> %s: %w", from, to, err)
	}
	return nil
}
