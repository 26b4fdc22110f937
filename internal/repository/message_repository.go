package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/repository/common"
)

var errMessageNotFound = apperror.New(apperror.ErrCodeNotFound, "сообщение не найдено")

type MessageRepository struct {
	db sqlx.ExtContext
}

func NewMessageRepository(db sqlx.ExtContext) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (project_id, user_id, content, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	row := r.db.QueryRowxContext(ctx, query, m.ProjectID, m.UserID, m.Content, m.Type)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("message repository: create %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	return common.GetByID[models.Message](ctx, r.db, "messages", id, errMessageNotFound)
}

// ListByProject возвращает сообщения проекта в порядке создания.
func (r *MessageRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Message, error) {
	messages := []models.Message{}
	err := sqlx.SelectContext(ctx, r.db, &messages,
		`SELECT * FROM messages WHERE project_id = $1 ORDER BY created_at ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("message repository: list %w", err)
	}
	return messages, nil
}
