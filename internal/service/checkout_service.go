package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/payment"
)

// CheckoutGateway - Stripe Checkout и проверка вебхуков.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	ParseWebhook(payload []byte, signature string) (*payment.CheckoutCompleted, error)
}

type CreditStore interface {
	AddCredits(ctx context.Context, userID string, amount int) (int, error)
}

// CheckoutService продаёт пакеты кредитов.
type CheckoutService struct {
	gateway            CheckoutGateway
	credits            CreditStore
	dedup              payment.Deduper
	creditsPerPurchase int
}

func NewCheckoutService(gateway CheckoutGateway, credits CreditStore, dedup payment.Deduper, creditsPerPurchase int) *CheckoutService {
	return &CheckoutService{
		gateway:            gateway,
		credits:            credits,
		dedup:              dedup,
		creditsPerPurchase: creditsPerPurchase,
	}
}

// Checkout возвращает адрес страницы оплаты для пользователя.
func (s *CheckoutService) Checkout(ctx context.Context, actor Actor) (string, error) {
	return s.gateway.CreateCheckoutSession(ctx, actor.UserID)
}

// HandleWebhook начисляет кредиты за оплаченную сессию. Повторная доставка события игнорируется.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	completed, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if completed == nil {
		return nil
	}

	claimed, err := s.dedup.Claim(ctx, payment.DedupStripeEvent, completed.EventID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Get().WithField("event_id", completed.EventID).Info("событие Stripe уже обработано")
		return nil
	}

	balance, err := s.credits.AddCredits(ctx, completed.UserID, s.creditsPerPurchase)
	if err != nil {
		_ = s.dedup.Release(ctx, payment.DedupStripeEvent, completed.EventID)
		return err
	}

	logger.Get().WithFields(logrus.Fields{
		"user_id":    completed.UserID,
		"session_id": completed.SessionID,
		"credits":    balance,
	}).Info("кредиты начислены")
	return nil
}
