package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/repository/common"
)

type ProjectRepository struct {
	db sqlx.ExtContext
}

func NewProjectRepository(db sqlx.ExtContext) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (name, creator_id, creator_role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	row := r.db.QueryRowxContext(ctx, query, p.Name, p.CreatorID, p.CreatorRole)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("project repository: create %w", err)
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return common.GetByID[models.Project](ctx, r.db, "projects", id, apperror.ErrProjectNotFound)
}

func (r *ProjectRepository) ListByCreator(ctx context.Context, creatorID string) ([]models.Project, error) {
	projects := []models.Project{}
	err := sqlx.SelectContext(ctx, r.db, &projects,
		`SELECT * FROM projects WHERE creator_id = $1 ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("project repository: list by creator %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}
	if len(ids) == 0 {
		return projects, nil
	}

	if err := common.SelectBuilt(ctx, r.db, &projects, listByIDsQuery(ids)); err != nil {
		return nil, fmt.Errorf("project repository: list by ids %w", err)
	}
	return projects, nil
}

func listByIDsQuery(ids []uuid.UUID) sq.SelectBuilder {
	return common.Builder.
		Select("*").
		From("projects").
		Where(sq.Eq{"id": ids}).
		OrderBy("created_at DESC")
}

// IsParticipant проверяет, что пользователь создатель проекта или принял приглашение в него.
func (r *ProjectRepository) IsParticipant(ctx context.Context, projectID uuid.UUID, userID, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM projects WHERE id = $1 AND creator_id = $2
		) OR EXISTS (
			SELECT 1 FROM invitations
			WHERE project_id = $1 AND status = 'accepted' AND lower(invitee_email) = lower($3)
		)`

	var ok bool
	if err := sqlx.GetContext(ctx, r.db, &ok, query, projectID, userID, email); err != nil {
		return false, fmt.Errorf("project repository: is participant %w", err)
	}
	return ok, nil
}

// CreatorEmail возвращает email создателя проекта из escrowuser.
func (r *ProjectRepository) CreatorEmail(ctx context.Context, projectID uuid.UUID) (string, error) {
	var email string
	err := sqlx.GetContext(ctx, r.db, &email, `
		SELECT u.email FROM projects p
		JOIN escrowuser u ON u.userid = p.creator_id
		WHERE p.id = $1`, projectID)
	if err != nil {
		return "", notFoundOr(err, apperror.ErrUserNotFound, "project repository: creator email")
	}
	return email, nil
}
