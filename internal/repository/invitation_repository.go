package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/repository/common"
)

type InvitationRepository struct {
	db sqlx.ExtContext
}

func NewInvitationRepository(db sqlx.ExtContext) *InvitationRepository {
	return &InvitationRepository{db: db}
}

func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (project_id, invitee_email, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	if inv.Status == "" {
		inv.Status = valueobject.InvitationStatusPending
	}

	row := r.db.QueryRowxContext(ctx, query, inv.ProjectID, inv.InviteeEmail, inv.Status)
	if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return fmt.Errorf("invitation repository: create %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	return common.GetByID[models.Invitation](ctx, r.db, "invitations", id, apperror.ErrInvitationNotFound)
}

// ListByEmail возвращает приглашения, адресованные email, новые первыми.
func (r *InvitationRepository) ListByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	invitations := []models.Invitation{}
	err := sqlx.SelectContext(ctx, r.db, &invitations,
		`SELECT * FROM invitations WHERE lower(invitee_email) = lower($1) ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("invitation repository: list by email %w", err)
	}
	return invitations, nil
}

// AcceptedProjectIDs возвращает проекты, приглашения в которые email принял.
func (r *InvitationRepository) AcceptedProjectIDs(ctx context.Context, email string) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := sqlx.SelectContext(ctx, r.db, &ids, `
		SELECT DISTINCT project_id FROM invitations
		WHERE lower(invitee_email) = lower($1) AND status = $2`,
		email, valueobject.InvitationStatusAccepted)
	if err != nil {
		return nil, fmt.Errorf("invitation repository: accepted projects %w", err)
	}
	return ids, nil
}

// UpdateStatus меняет статус ровно одного приглашения.
func (r *InvitationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.InvitationStatus) (*models.Invitation, error) {
	var inv models.Invitation
	err := sqlx.GetContext(ctx, r.db, &inv, `
		UPDATE invitations SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING *`, id, status)
	if err != nil {
		return nil, notFoundOr(err, apperror.ErrInvitationNotFound, "invitation repository: update status")
	}
	return &inv, nil
}

// AcceptedInviteeEmail возвращает email принявшего приглашение участника проекта.
func (r *InvitationRepository) AcceptedInviteeEmail(ctx context.Context, projectID uuid.UUID) (string, error) {
	var email string
	err := sqlx.GetContext(ctx, r.db, &email, `
		SELECT invitee_email FROM invitations
		WHERE project_id = $1 AND status = $2
		ORDER BY updated_at DESC
		LIMIT 1`, projectID, valueobject.InvitationStatusAccepted)
	if err != nil {
		return "", notFoundOr(err, apperror.ErrInvitationNotFound, "invitation repository: accepted invitee")
	}
	return email, nil
}
