package service

import (
	"context"
	"strings"

	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/validation"
)

type UserRepository interface {
	Ensure(ctx context.Context, userID, email string, credits int) (*models.EscrowUser, error)
	GetByUserID(ctx context.Context, userID string) (*models.EscrowUser, error)
	AddCredits(ctx context.Context, userID string, amount int) (int, error)
	Search(ctx context.Context, query string) ([]models.UserSummary, error)
}

type UserService struct {
	repo           UserRepository
	newUserCredits int
}

func NewUserService(repo UserRepository, newUserCredits int) *UserService {
	return &UserService{repo: repo, newUserCredits: newUserCredits}
}

// EnsureUser создаёт запись пользователя при первом обращении.
func (s *UserService) EnsureUser(ctx context.Context, actor Actor) (*models.EscrowUser, error) {
	return s.repo.Ensure(ctx, actor.UserID, actor.Email, s.newUserCredits)
}

// GetCredits возвращает баланс кредитов.
func (s *UserService) GetCredits(ctx context.Context, userID string) (int, error) {
	u, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.Credits, nil
}

// AddCredits начисляет кредиты после оплаты.
func (s *UserService) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	if err := validation.Var("amount", amount, "gt=0"); err != nil {
		return 0, err
	}
	return s.repo.AddCredits(ctx, userID, amount)
}

// SearchUsers ищет пользователей для приглашения по части email.
func (s *UserService) SearchUsers(ctx context.Context, query string) ([]models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.UserSummary{}, nil
	}
	if err := validation.Var("q", query, "max=100"); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, query)
}
