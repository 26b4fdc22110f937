package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

const userSearchLimit = 10

type UserRepository struct {
	db sqlx.ExtContext
}

func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure создаёт запись пользователя со стартовыми кредитами, если её ещё нет.
// Существующая запись только обновляет email.
func (r *UserRepository) Ensure(ctx context.Context, userID, email string, credits int) (*models.EscrowUser, error) {
	query := `
		INSERT INTO escrowuser (userid, email, credits)
		VALUES ($1, $2, $3)
		ON CONFLICT (userid) DO UPDATE SET email = EXCLUDED.email
		RETURNING *`

	var u models.EscrowUser
	if err := sqlx.GetContext(ctx, r.db, &u, query, userID, email, credits); err != nil {
		return nil, fmt.Errorf("user repository: ensure %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*models.EscrowUser, error) {
	var u models.EscrowUser
	if err := sqlx.GetContext(ctx, r.db, &u, `SELECT * FROM escrowuser WHERE userid = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get %w", err)
	}
	return &u, nil
}

// AddCredits увеличивает баланс и возвращает новое значение.
func (r *UserRepository) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	var credits int
	err := sqlx.GetContext(ctx, r.db, &credits,
		`UPDATE escrowuser SET credits = credits + $2 WHERE userid = $1 RETURNING credits`, userID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.ErrUserNotFound
		}
		return 0, fmt.Errorf("user repository: add credits %w", err)
	}
	return credits, nil
}

// Search ищет пользователей по части email без учёта регистра.
func (r *UserRepository) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	users := []models.UserSummary{}
	err := sqlx.SelectContext(ctx, r.db, &users,
		`SELECT userid, email FROM escrowuser WHERE email ILIKE $1 ORDER BY email LIMIT $2`,
		"%"+escapeLike(query)+"%", userSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("user repository: search %w", err)
	}
	return users, nil
}
