package models

import (
	"time"

	"github.com/google/uuid"
)

// EscrowUser описывает учётную запись пользователя в escrowuser.
// UserID выдаёт внешний провайдер идентификации.
type EscrowUser struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    string    `db:"userid" json:"userid"`
	Email     string    `db:"email" json:"email"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserSummary используется в поиске пользователей.
type UserSummary struct {
	UserID string `db:"userid" json:"userid"`
	Email  string `db:"email" json:"email"`
}
