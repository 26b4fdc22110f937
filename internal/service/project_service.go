package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/metrics"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/validation"
)

type ProjectRepository interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Project, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
	IsParticipant(ctx context.Context, projectID uuid.UUID, userID, email string) (bool, error)
	CreatorEmail(ctx context.Context, projectID uuid.UUID) (string, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *models.Invitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ListByEmail(ctx context.Context, email string) ([]models.Invitation, error)
	AcceptedProjectIDs(ctx context.Context, email string) ([]uuid.UUID, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status valueobject.InvitationStatus) (*models.Invitation, error)
	AcceptedInviteeEmail(ctx context.Context, projectID uuid.UUID) (string, error)
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Message, error)
}

type OfferRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	GetByProject(ctx context.Context, projectID uuid.UUID) (*models.Offer, error)
}

// CreateProjectInput - данные формы создания проекта.
type CreateProjectInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Role        string `json:"role" validate:"required,oneof=buyer seller"`
	InviteEmail string `json:"invite_email" validate:"omitempty,email"`
}

type ProjectService struct {
	projects    ProjectRepository
	invitations InvitationRepository
	messages    MessageRepository
	offers      OfferRepository
}

func NewProjectService(projects ProjectRepository, invitations InvitationRepository, messages MessageRepository, offers OfferRepository) *ProjectService {
	return &ProjectService{
		projects:    projects,
		invitations: invitations,
		messages:    messages,
		offers:      offers,
	}
}

// CreateProject создаёт проект и, если создатель покупатель, приглашает продавца по email.
// Приглашение пишется отдельно: при ошибке проект остаётся без приглашения.
func (s *ProjectService) CreateProject(ctx context.Context, actor Actor, in CreateProjectInput) (*models.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.InviteEmail = strings.ToLower(strings.TrimSpace(in.InviteEmail))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role, err := valueobject.NewCreatorRole(in.Role)
	if err != nil {
		return nil, err
	}

	project := &models.Project{Name: in.Name, CreatorID: actor.UserID, CreatorRole: role}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("project service: create: %w", err)
	}

	if role == valueobject.CreatorRoleBuyer && in.InviteEmail != "" {
		inv := &models.Invitation{ProjectID: project.ID, InviteeEmail: in.InviteEmail}
		if err := s.invitations.Create(ctx, inv); err != nil {
			logger.Get().WithFields(logrus.Fields{
				"project_id": project.ID,
				"invitee":    in.InviteEmail,
				"error":      err.Error(),
			}).Error("не удалось создать приглашение, проект сохранён без него")
		}
	}

	return project, nil
}

// FetchProjects возвращает проекты пользователя: созданные им и те, приглашение в которые он принял.
// Проекты из принятых приглашений помечаются статусом "accepted".
func (s *ProjectService) FetchProjects(ctx context.Context, actor Actor) ([]models.Project, error) {
	created, err := s.projects.ListByCreator(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("project service: list created: %w", err)
	}

	result := make([]models.Project, 0, len(created))
	seen := make(map[uuid.UUID]struct{}, len(created))
	for _, p := range created {
		seen[p.ID] = struct{}{}
		result = append(result, p)
	}

	if actor.Email == "" {
		return result, nil
	}

	ids, err := s.invitations.AcceptedProjectIDs(ctx, actor.Email)
	if err != nil {
		return nil, fmt.Errorf("project service: accepted invitations: %w", err)
	}
	accepted, err := s.projects.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("project service: list accepted: %w", err)
	}

	for _, p := range accepted {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		p.Status = string(valueobject.InvitationStatusAccepted)
		result = append(result, p)
	}
	return result, nil
}

// ListInvitations возвращает приглашения, адресованные пользователю.
func (s *ProjectService) ListInvitations(ctx context.Context, actor Actor) ([]models.Invitation, error) {
	if actor.Email == "" {
		return []models.Invitation{}, nil
	}
	return s.invitations.ListByEmail(ctx, actor.Email)
}

// HandleInvitation принимает или отклоняет одно приглашение и возвращает обновлённый список проектов.
func (s *ProjectService) HandleInvitation(ctx context.Context, actor Actor, invitationID uuid.UUID, status string) ([]models.Project, error) {
	decision, err := valueobject.NewInvitationDecision(status)
	if err != nil {
		return nil, err
	}

	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if actor.Email == "" || !strings.EqualFold(inv.InviteeEmail, actor.Email) {
		return nil, apperror.ErrForbidden
	}

	if _, err := s.invitations.UpdateStatus(ctx, invitationID, decision); err != nil {
		return nil, err
	}

	return s.FetchProjects(ctx, actor)
}

// GetProjectDetails возвращает проект с предложением и перепиской.
func (s *ProjectService) GetProjectDetails(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.ProjectDetails, error) {
	project, err := s.participantProject(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	details := &models.ProjectDetails{Project: *project}

	offer, err := s.offers.GetByProject(ctx, projectID)
	switch {
	case err == nil:
		details.Offer = offer
	case apperror.IsNotFound(err):
	default:
		return nil, err
	}

	details.Messages, err = s.messages.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// SendMessage добавляет текстовое сообщение в переписку проекта.
func (s *ProjectService) SendMessage(ctx context.Context, actor Actor, projectID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if err := validation.Var("content", content, "required,max=5000"); err != nil {
		return nil, err
	}
	if _, err := s.participantProject(ctx, actor, projectID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ProjectID: projectID,
		UserID:    actor.UserID,
		Content:   content,
		Type:      valueobject.MessageTypeText,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesCreatedTotal.WithLabelValues(string(msg.Type)).Inc()
	return msg, nil
}

// ListMessages возвращает переписку проекта в порядке создания.
func (s *ProjectService) ListMessages(ctx context.Context, actor Actor, projectID uuid.UUID) ([]models.Message, error) {
	if _, err := s.participantProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.messages.ListByProject(ctx, projectID)
}

// Authorize проверяет, что пользователь участник проекта.
func (s *ProjectService) Authorize(ctx context.Context, actor Actor, projectID uuid.UUID) error {
	_, err := s.participantProject(ctx, actor, projectID)
	return err
}

func (s *ProjectService) participantProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.CreatorID == actor.UserID {
		return project, nil
	}

	ok, err := s.projects.IsParticipant(ctx, projectID, actor.UserID, actor.Email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.ErrNotParticipant
	}
	return project, nil
}
