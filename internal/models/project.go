package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
)

// Project описывает сделку между покупателем и продавцом.
type Project struct {
	ID          uuid.UUID               `db:"id" json:"id"`
	Name        string                  `db:"name" json:"name"`
	CreatorID   string                  `db:"creator_id" json:"creator_id"`
	CreatorRole valueobject.CreatorRole `db:"creator_role" json:"creator_role"`
	CreatedAt   time.Time               `db:"created_at" json:"created_at"`
	// Status заполняется только для проектов, полученных через принятое приглашение.
	Status string `db:"-" json:"status,omitempty"`
}

// Invitation описывает приглашение второй стороны в проект.
type Invitation struct {
	ID           uuid.UUID                    `db:"id" json:"id"`
	ProjectID    uuid.UUID                    `db:"project_id" json:"project_id"`
	InviteeEmail string                       `db:"invitee_email" json:"invitee_email"`
	Status       valueobject.InvitationStatus `db:"status" json:"status"`
	CreatedAt    time.Time                    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time                    `db:"updated_at" json:"updated_at"`
}

// ProjectDetails собирает проект вместе с предложением и перепиской.
type ProjectDetails struct {
	Project
	Offer    *Offer    `json:"offer"`
	Messages []Message `json:"messages"`
}
