package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
)

// Message описывает сообщение в ленте проекта. Сообщения только добавляются.
type Message struct {
	ID        uuid.UUID               `db:"id" json:"id"`
	ProjectID uuid.UUID               `db:"project_id" json:"project_id"`
	UserID    string                  `db:"user_id" json:"user_id"`
	Content   string                  `db:"content" json:"content"`
	Type      valueobject.MessageType `db:"type" json:"type"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}
