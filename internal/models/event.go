package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Таблицы, изменения которых рассылаются подписчикам проекта.
const (
	TableMessages = "messages"
	TableOffers   = "offers"
)

// Типы изменений строк.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// ChangeEvent описывает изменение строки, отправляемое в realtime канал проекта.
type ChangeEvent struct {
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	ProjectID uuid.UUID       `json:"project_id"`
	New       json.RawMessage `json:"new"`
}
