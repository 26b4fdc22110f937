package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/repository/common"
)

// EscrowTx - операции, которые фиксируются одной транзакцией вместе с сообщением.
type EscrowTx interface {
	CreateOffer(ctx context.Context, o *models.Offer) error
	TransitionOffer(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, fields OfferFields) (*models.Offer, error)
	CreateMessage(ctx context.Context, m *models.Message) error
}

type escrowTx struct {
	offers   *OfferRepository
	messages *MessageRepository
}

func (t *escrowTx) CreateOffer(ctx context.Context, o *models.Offer) error {
	return t.offers.Create(ctx, o)
}

func (t *escrowTx) TransitionOffer(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, fields OfferFields) (*models.Offer, error) {
	return t.offers.Transition(ctx, id, from, to, fields)
}

func (t *escrowTx) CreateMessage(ctx context.Context, m *models.Message) error {
	return t.messages.Create(ctx, m)
}

type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// InTx выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (m *TxManager) InTx(ctx context.Context, fn func(tx EscrowTx) error) error {
	return common.WithTransaction(ctx, m.db, func(tx *sqlx.Tx) error {
		return fn(&escrowTx{
			offers:   NewOfferRepository(tx),
			messages: NewMessageRepository(tx),
		})
	})
}
