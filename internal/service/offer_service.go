package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/payment"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/repository"
	"github.com/ignatzorin/easytransact-backend/internal/validation"
)

// Тексты системных сообщений, сопровождающих смену статуса предложения.
const (
	contentOfferPaid         = "Offer has been paid"
	contentWorkSubmitted     = "Work submitted: "
	contentWorkApproved      = "Work has been approved and payment released"
	contentRevisionRequested = "Revision requested for the submitted work"
	payoutNote               = "Payment for completed work"
)

var (
	errBuyerOnly  = apperror.New(apperror.ErrCodeForbidden, "действие доступно только покупателю")
	errSellerOnly = apperror.New(apperror.ErrCodeForbidden, "действие доступно только продавцу")
	errNoPayPal   = apperror.New(apperror.ErrCodeUpstream, "PayPal не настроен")
	errPayout     = apperror.New(apperror.ErrCodeUpstream, "работа одобрена, но выплата продавцу не выполнена")

	errOrderMismatch = apperror.New(apperror.ErrCodeValidation, "заказ PayPal не соответствует предложению")
)

// TxRunner выполняет запись статуса и сообщения одной транзакцией.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx repository.EscrowTx) error) error
}

// PaymentProvider - операции PayPal, которые нужны сделке.
type PaymentProvider interface {
	Currency() string
	CreateOrder(ctx context.Context, referenceID string, amount float64) (*payment.PayPalOrder, error)
	GetOrder(ctx context.Context, orderID string) (*payment.PayPalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.PayPalCapture, error)
	Payout(ctx context.Context, receiverEmail string, amount float64, note string) (string, error)
}

// CreateOfferInput - условия предложения.
type CreateOfferInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Amount      float64 `json:"amount" validate:"gt=0,lte=100000000,cents"`
}

type OfferService struct {
	offers      OfferRepository
	projects    ProjectRepository
	invitations InvitationRepository
	tx          TxRunner
	paypal      PaymentProvider
	dedup       payment.Deduper
}

// NewOfferService создаёт сервис сделки. paypal может быть nil, если PayPal не настроен.
func NewOfferService(offers OfferRepository, projects ProjectRepository, invitations InvitationRepository, tx TxRunner, paypal PaymentProvider, dedup payment.Deduper) *OfferService {
	return &OfferService{
		offers:      offers,
		projects:    projects,
		invitations: invitations,
		tx:          tx,
		paypal:      paypal,
		dedup:       dedup,
	}
}

// GetOffer возвращает предложение проекта.
func (s *OfferService) GetOffer(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Offer, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roleOf(ctx, actor, project); err != nil {
		return nil, err
	}
	return s.offers.GetByProject(ctx, projectID)
}

// CreateOffer создаёт единственное предложение проекта и сообщение offer_created с его JSON.
func (s *OfferService) CreateOffer(ctx context.Context, actor Actor, projectID uuid.UUID, in CreateOfferInput) (*models.Offer, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, actor, project, valueobject.CreatorRoleBuyer); err != nil {
		return nil, err
	}

	if _, err := s.offers.GetByProject(ctx, projectID); err == nil {
		return nil, apperror.ErrOfferExists
	} else if !apperror.IsNotFound(err) {
		return nil, err
	}

	offer := &models.Offer{
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Amount:      in.Amount,
		Status:      valueobject.OfferStatusPending,
	}

	err = s.tx.InTx(ctx, func(tx repository.EscrowTx) error {
		if err := tx.CreateOffer(ctx, offer); err != nil {
			return err
		}
		content, err := json.Marshal(offer)
		if err != nil {
			return err
		}
		return tx.CreateMessage(ctx, &models.Message{
			ProjectID: projectID,
			UserID:    actor.UserID,
			Content:   string(content),
			Type:      valueobject.MessageTypeOfferCreated,
		})
	})
	if err != nil {
		metrics.OfferTransitionsTotal.WithLabelValues(string(valueobject.OfferStatusPending), resultLabel(err)).Inc()
		return nil, fmt.Errorf("offer service: create: %w", err)
	}

	metrics.OfferTransitionsTotal.WithLabelValues(string(valueobject.OfferStatusPending), "ok").Inc()
	metrics.MessagesCreatedTotal.WithLabelValues(string(valueobject.MessageTypeOfferCreated)).Inc()
	return offer, nil
}

// PayOffer отмечает предложение оплаченным и сохраняет детали платежа.
func (s *OfferService) PayOffer(ctx context.Context, actor Actor, offerID uuid.UUID, details models.JSON) (*models.Offer, error) {
	if _, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleBuyer, valueobject.OfferStatusPaid); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, offerID, valueobject.OfferStatusPaid,
		repository.OfferFields{PaymentDetails: details}, contentOfferPaid)
}

// CreatePayPalOrder создаёт заказ PayPal на сумму предложения.
func (s *OfferService) CreatePayPalOrder(ctx context.Context, actor Actor, offerID uuid.UUID) (*payment.PayPalOrder, error) {
	if s.paypal == nil {
		return nil, errNoPayPal
	}
	offer, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleBuyer, valueobject.OfferStatusPaid)
	if err != nil {
		return nil, err
	}
	return s.paypal.CreateOrder(ctx, offer.ID.String(), offer.Amount)
}

// CapturePayPalOrder списывает одобренный заказ и переводит предложение в paid.
// Заказ должен быть создан для этого предложения на его сумму в настроенной валюте:
// это проверяется до списания по заказу и после списания по его результату.
// Повторный захват того же заказа отклоняется.
func (s *OfferService) CapturePayPalOrder(ctx context.Context, actor Actor, offerID uuid.UUID, orderID string) (*models.Offer, error) {
	if s.paypal == nil {
		return nil, errNoPayPal
	}
	if err := validation.Var("order_id", orderID, "required,alphanum,max=64"); err != nil {
		return nil, err
	}

	offer, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleBuyer, valueobject.OfferStatusPaid)
	if err != nil {
		return nil, err
	}

	log := logger.Get().WithFields(logrus.Fields{"offer_id": offerID, "order_id": orderID})
	reference, currency := offer.ID.String(), s.paypal.Currency()

	order, err := s.paypal.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Matches(reference, offer.Amount, currency) {
		log.Warn("заказ PayPal не соответствует предложению, списание отклонено")
		return nil, errOrderMismatch
	}

	claimed, err := s.dedup.Claim(ctx, payment.DedupPayPalCapture, orderID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperror.ErrAlreadyProcessed
	}

	capture, err := s.paypal.CaptureOrder(ctx, orderID)
	if err != nil {
		if relErr := s.dedup.Release(ctx, payment.DedupPayPalCapture, orderID); relErr != nil {
			logger.Get().WithField("error", relErr.Error()).Warn("не удалось снять отметку захвата заказа")
		}
		return nil, err
	}

	// Деньги списаны. Дальше отметка захвата не снимается, расхождения разбираются вручную.
	if !capture.Matches(reference, offer.Amount, currency) {
		log.WithField("capture_id", capture.ID).Error("списание PayPal не соответствует предложению, статус не изменён")
		return nil, errOrderMismatch
	}

	paid, err := s.transition(ctx, actor, offerID, valueobject.OfferStatusPaid,
		repository.OfferFields{PaymentDetails: models.JSON(capture.Raw)}, contentOfferPaid)
	if err != nil {
		log.WithField("error", err.Error()).Error("заказ PayPal списан, но статус предложения не обновлён")
		return nil, err
	}
	return paid, nil
}

// SubmitWork сдаёт работу. Доступно стороне продавца.
func (s *OfferService) SubmitWork(ctx context.Context, actor Actor, offerID uuid.UUID, work models.WorkSubmission) (*models.Offer, error) {
	work.Link = strings.TrimSpace(work.Link)
	if err := validation.Struct(work); err != nil {
		return nil, err
	}
	if _, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleSeller, valueobject.OfferStatusWorkSubmitted); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, offerID, valueobject.OfferStatusWorkSubmitted,
		repository.OfferFields{WorkSubmission: &work}, contentWorkSubmitted+work.Link)
}

// ApproveWork принимает работу и затем выплачивает сумму продавцу.
// Выплата не входит в транзакцию смены статуса: при её ошибке возвращаются
// одобренное предложение и ошибка, расхождение не исправляется автоматически.
func (s *OfferService) ApproveWork(ctx context.Context, actor Actor, offerID uuid.UUID) (*models.Offer, error) {
	if _, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleBuyer, valueobject.OfferStatusCompleted); err != nil {
		return nil, err
	}

	offer, err := s.transition(ctx, actor, offerID, valueobject.OfferStatusCompleted,
		repository.OfferFields{}, contentWorkApproved)
	if err != nil {
		return nil, err
	}

	log := logger.Get().WithFields(logrus.Fields{"offer_id": offer.ID, "project_id": offer.ProjectID})
	if s.paypal == nil {
		metrics.PayoutsTotal.WithLabelValues("skipped").Inc()
		log.Warn("PayPal не настроен, выплата пропущена")
		return offer, nil
	}

	email, err := s.sellerEmail(ctx, offer.ProjectID)
	if err == nil {
		var batchID string
		batchID, err = s.paypal.Payout(ctx, email, offer.Amount, payoutNote)
		if err == nil {
			metrics.PayoutsTotal.WithLabelValues("ok").Inc()
			log.WithField("payout_batch_id", batchID).Info("выплата продавцу отправлена")
			return offer, nil
		}
	}

	metrics.PayoutsTotal.WithLabelValues("error").Inc()
	log.WithField("error", err.Error()).Error("выплата продавцу не выполнена")
	return offer, apperror.Wrap(err, errPayout.Code, errPayout.Message)
}

// RequestRevision запрашивает доработку сданной работы.
func (s *OfferService) RequestRevision(ctx context.Context, actor Actor, offerID uuid.UUID) (*models.Offer, error) {
	if _, err := s.loadForTransition(ctx, actor, offerID, valueobject.CreatorRoleBuyer, valueobject.OfferStatusRevisionRequested); err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, offerID, valueobject.OfferStatusRevisionRequested,
		repository.OfferFields{}, contentRevisionRequested)
}

// transition меняет статус на to, если текущий статус равен единственному допустимому
// предыдущему, и пишет сообщение соответствующего типа в той же транзакции.
func (s *OfferService) transition(ctx context.Context, actor Actor, offerID uuid.UUID, to valueobject.OfferStatus, fields repository.OfferFields, content string) (*models.Offer, error) {
	from, ok := valueobject.PreviousFor(to)
	if !ok {
		return nil, apperror.ErrInvalidTransition
	}

	var updated *models.Offer
	err := s.tx.InTx(ctx, func(tx repository.EscrowTx) error {
		o, err := tx.TransitionOffer(ctx, offerID, from, to, fields)
		if err != nil {
			return err
		}
		updated = o
		return tx.CreateMessage(ctx, &models.Message{
			ProjectID: o.ProjectID,
			UserID:    actor.UserID,
			Content:   content,
			Type:      to.MessageType(),
		})
	})
	metrics.OfferTransitionsTotal.WithLabelValues(string(to), resultLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("offer service: %s: %w", to, err)
	}

	metrics.MessagesCreatedTotal.WithLabelValues(string(to.MessageType())).Inc()
	return updated, nil
}

// loadForTransition загружает предложение, проверяет сторону пользователя и то, что
// из текущего статуса допустим переход в to. Окончательно переход решает
// compare-and-set в transition: статус мог измениться после чтения.
func (s *OfferService) loadForTransition(ctx context.Context, actor Actor, offerID uuid.UUID, role valueobject.CreatorRole, to valueobject.OfferStatus) (*models.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, offer.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireRole(ctx, actor, project, role); err != nil {
		return nil, err
	}
	if !offer.Status.CanTransitionTo(to) {
		return nil, apperror.ErrInvalidTransition
	}
	return offer, nil
}

func (s *OfferService) requireRole(ctx context.Context, actor Actor, project *models.Project, role valueobject.CreatorRole) error {
	got, err := s.roleOf(ctx, actor, project)
	if err != nil {
		return err
	}
	if got != role {
		if role == valueobject.CreatorRoleBuyer {
			return errBuyerOnly
		}
		return errSellerOnly
	}
	return nil
}

// roleOf определяет сторону пользователя в проекте: создатель занимает выбранную роль,
// принявший приглашение - противоположную.
func (s *OfferService) roleOf(ctx context.Context, actor Actor, project *models.Project) (valueobject.CreatorRole, error) {
	if project.CreatorID == actor.UserID {
		return project.CreatorRole, nil
	}

	ok, err := s.projects.IsParticipant(ctx, project.ID, actor.UserID, actor.Email)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperror.ErrNotParticipant
	}
	if project.CreatorRole == valueobject.CreatorRoleBuyer {
		return valueobject.CreatorRoleSeller, nil
	}
	return valueobject.CreatorRoleBuyer, nil
}

func (s *OfferService) sellerEmail(ctx context.Context, projectID uuid.UUID) (string, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.CreatorRole == valueobject.CreatorRoleSeller {
		return s.projects.CreatorEmail(ctx, projectID)
	}
	return s.invitations.AcceptedInviteeEmail(ctx, projectID)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperror.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}
