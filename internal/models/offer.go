package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
)

// Offer описывает платное предложение по проекту.
type Offer struct {
	ID             uuid.UUID               `db:"id" json:"id"`
	ProjectID      uuid.UUID               `db:"project_id" json:"project_id"`
	Title          string                  `db:"title" json:"title"`
	Description    string                  `db:"description" json:"description"`
	Amount         float64                 `db:"amount" json:"amount"`
	Status         valueobject.OfferStatus `db:"status" json:"status"`
	PaymentDetails JSON                    `db:"payment_details" json:"payment_details,omitempty"`
	WorkSubmission *WorkSubmission         `db:"work_submission" json:"work_submission,omitempty"`
	CreatedAt      time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time               `db:"updated_at" json:"updated_at"`
}

// WorkSubmission хранится в jsonb колонке offers.work_submission.
type WorkSubmission struct {
	Link        string `json:"link" validate:"required,url"`
	Description string `json:"description"`
}

// Value реализует driver.Valuer. Строка нужна, чтобы lib/pq не передал значение как bytea.
func (w WorkSubmission) Value() (driver.Value, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan реализует sql.Scanner.
func (w *WorkSubmission) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("work submission: неподдерживаемый тип %T", src)
	}
}
