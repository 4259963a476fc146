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

// ErrPostingNotFound возвращается, когда публикация не найдена.
var ErrPostingNotFound = errors.New("posting not found")

// PostingRepository читает публикации, синхронизированные из реестра.
type PostingRepository struct {
	db *sqlx.DB
}

// NewPostingRepository создаёт экземпляр репозитория.
func NewPostingRepository(db *sqlx.DB) *PostingRepository {
	return &PostingRepository{db: db}
}

// GetPosting возвращает публикацию по идентификатору.
func (r *PostingRepository) GetPosting(ctx context.Context, id uuid.UUID) (*models.Posting, error) {
	return common.GetByID[models.Posting](ctx, r.db, "postings", id, ErrPostingNotFound)
}

// DeletePosting удаляет публикацию.
func (r *PostingRepository) DeletePosting(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM postings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("posting repository: delete %w", err)
	}
	return common.ExpectAffected(result, ErrPostingNotFound)
}
