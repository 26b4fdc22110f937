package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/payment"
	"github.com/ignatzorin/easytransact-backend/internal/repository"
)

type mockProjectRepo struct{ mock.Mock }

func (m *mockProjectRepo) Create(ctx context.Context, p *models.Project) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil && p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectRepo) ListByCreator(ctx context.Context, creatorID string) ([]models.Project, error) {
	args := m.Called(ctx, creatorID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *mockProjectRepo) IsParticipant(ctx context.Context, projectID uuid.UUID, userID, email string) (bool, error) {
	args := m.Called(ctx, projectID, userID, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockProjectRepo) CreatorEmail(ctx context.Context, projectID uuid.UUID) (string, error) {
	args := m.Called(ctx, projectID)
	return args.String(0), args.Error(1)
}

type mockInvitationRepo struct{ mock.Mock }

func (m *mockInvitationRepo) Create(ctx context.Context, inv *models.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) ListByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]models.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) AcceptedProjectIDs(ctx context.Context, email string) ([]uuid.UUID, error) {
	args := m.Called(ctx, email)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockInvitationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.InvitationStatus) (*models.Invitation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) AcceptedInviteeEmail(ctx context.Context, projectID uuid.UUID) (string, error) {
	args := m.Called(ctx, projectID)
	return args.String(0), args.Error(1)
}

type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Message, error) {
	args := m.Called(ctx, projectID)
	return args.Get(0).([]models.Message), args.Error(1)
}

type mockOfferRepo struct{ mock.Mock }

func (m *mockOfferRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *mockOfferRepo) GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Offer, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

// mockEscrowTx реализует и TxRunner, и EscrowTx: InTx вызывает fn с самим собой.
type mockEscrowTx struct {
	mock.Mock
	commits int
}

func (m *mockEscrowTx) InTx(_ context.Context, fn func(tx repository.EscrowTx) error) error {
	if err := fn(m); err != nil {
		return err
	}
	m.commits++
	return nil
}

func (m *mockEscrowTx) CreateOffer(ctx context.Context, o *models.Offer) error {
	args := m.Called(ctx, o)
	if args.Error(0) == nil {
		o.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockEscrowTx) TransitionOffer(ctx context.Context, id uuid.UUID, from, to valueobject.OfferStatus, fields repository.OfferFields) (*models.Offer, error) {
	args := m.Called(ctx, id, from, to, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *mockEscrowTx) CreateMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPayPal struct{ mock.Mock }

func (m *mockPayPal) CreateOrder(ctx context.Context, referenceID string, amount float64) (*payment.PayPalOrder, error) {
	args := m.Called(ctx, referenceID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PayPalOrder), args.Error(1)
}

func (m *mockPayPal) Currency() string {
	return m.Called().String(0)
}

func (m *mockPayPal) GetOrder(ctx context.Context, orderID string) (*payment.PayPalOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PayPalOrder), args.Error(1)
}

func (m *mockPayPal) CaptureOrder(ctx context.Context, orderID string) (*payment.PayPalCapture, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.PayPalCapture), args.Error(1)
}

func (m *mockPayPal) Payout(ctx context.Context, receiverEmail string, amount float64, note string) (string, error) {
	args := m.Called(ctx, receiverEmail, amount, note)
	return args.String(0), args.Error(1)
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Ensure(ctx context.Context, userID, email string, credits int) (*models.EscrowUser, error) {
	args := m.Called(ctx, userID, email, credits)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowUser), args.Error(1)
}

func (m *mockUserRepo) GetByUserID(ctx context.Context, userID string) (*models.EscrowUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EscrowUser), args.Error(1)
}

func (m *mockUserRepo) AddCredits(ctx context.Context, userID string, amount int) (int, error) {
	args := m.Called(ctx, userID, amount)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) Search(ctx context.Context, query string) ([]models.UserSummary, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]models.UserSummary), args.Error(1)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) ParseWebhook(payload []byte, signature string) (*payment.CheckoutCompleted, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutCompleted), args.Error(1)
}
