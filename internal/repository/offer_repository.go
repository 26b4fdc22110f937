package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/repository/common"
)

// OfferFields - колонки, которые переход статуса может записать вместе со статусом.
type OfferFields struct {
	PaymentDetails models.JSON
	WorkSubmission *models.WorkSubmission
}

type OfferRepository struct {
	db sqlx.ExtContext
}

func NewOfferRepository(db sqlx.ExtContext) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, o *models.Offer) error {
	query := `
		INSERT INTO offers (project_id, title, description, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	if o.Status == "" {
		o.Status = valueobject.OfferStatusPending
	}

	row := r.db.QueryRowxContext(ctx, query, o.ProjectID, o.Title, o.Description, o.Amount, o.Status)
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return apperror.ErrOfferExists
		}
		return fmt.Errorf("offer repository: create %w", err)
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	return common.GetByID[models.Offer](ctx, r.db, "offers", id, apperror.ErrOfferNotFound)
}

// GetByProject возвращает предложение проекта.
func (r *OfferRepository) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Offer, error) {
	var o models.Offer
	err := sqlx.GetContext(ctx, r.db, &o,
		`SELECT * FROM offers WHERE project_id = $1 ORDER BY created_at LIMIT 1`, projectID)
	if err != nil {
		return nil, notFoundOr(err, apperror.ErrOfferNotFound, "offer repository: get by project")
	}
	return &o, nil
}

// Transition переводит предложение из статуса from в статус to.
// Обновление выполняется только если текущий статус равен from.
func (r *OfferRepository) Transition(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, fields OfferFields) (*models.Offer, error) {
	var o models.Offer
	err := common.GetBuilt(ctx, r.db, &o, transitionQuery(id, from, to, fields))
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("offer repository: transition %w", err)
	}

	// Строка не обновилась: предложения нет или его статус уже другой.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperror.ErrInvalidTransition
}

func transitionQuery(id uuid.UUID, from, to valueobject.OfferStatus, fields OfferFields) sq.UpdateBuilder {
	q := common.Builder.
		Update("offers").
		Set("status", string(to)).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id.String(), "status": string(from)}).
		Suffix("RETURNING *")

	if fields.PaymentDetails != nil {
		q = q.Set("payment_details", fields.PaymentDetails)
	}
	if fields.WorkSubmission != nil {
		q = q.Set("work_submission", *fields.WorkSubmission)
	}
	return q
}
