package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/ignatzorin/easytransact-backend/internal/config"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

const eventCheckoutCompleted = "checkout.session.completed"

// CheckoutCompleted - оплаченная сессия покупки кредитов.
type CheckoutCompleted struct {
	EventID   string
	SessionID string
	UserID    string
}

// StripeGateway создаёт Checkout сессии и проверяет вебхуки.
type StripeGateway struct {
	api *client.API
	cfg config.StripeConfig
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	return newStripeGateway(cfg, nil)
}

func newStripeGateway(cfg config.StripeConfig, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{api: client.New(cfg.SecretKey, backends), cfg: cfg}
}

// CreateCheckoutSession создаёт сессию оплаты одного пакета кредитов и возвращает её URL.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(g.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.cfg.SuccessURL),
		CancelURL:  stripe.String(g.cfg.CancelURL),
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeUpstream, "не удалось создать сессию оплаты")
	}
	return sess.URL, nil
}

// ParseWebhook проверяет подпись и возвращает оплаченную сессию.
// Для остальных типов событий возвращает nil без ошибки.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*CheckoutCompleted, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "некорректная подпись вебхука")
	}

	if string(event.Type) != eventCheckoutCompleted {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe: разбор сессии: %w", err)
	}
	if sess.ClientReferenceID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "в сессии нет client_reference_id")
	}

	return &CheckoutCompleted{EventID: event.ID, SessionID: sess.ID, UserID: sess.ClientReferenceID}, nil
}
