package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/easytransact-backend/internal/domain/valueobject"
	"github.com/ignatzorin/easytransact-backend/internal/models"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

type projectFixture struct {
	projects    *mockProjectRepo
	invitations *mockInvitationRepo
	messages    *mockMessageRepo
	offers      *mockOfferRepo
	svc         *ProjectService
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects:    new(mockProjectRepo),
		invitations: new(mockInvitationRepo),
		messages:    new(mockMessageRepo),
		offers:      new(mockOfferRepo),
	}
	f.svc = NewProjectService(f.projects, f.invitations, f.messages, f.offers)
	return f
}

var alice = Actor{UserID: "user-alice", Email: "alice@example.com"}

func TestProjectService_CreateProject_BuyerInvitesSeller(t *testing.T) {
	f := newProjectFixture()
	f.projects.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.Name == "Сайт" && p.CreatorID == alice.UserID && p.CreatorRole == valueobject.CreatorRoleBuyer
	})).Return(nil)
	f.invitations.On("Create", mock.Anything, mock.MatchedBy(func(inv *models.Invitation) bool {
		return inv.InviteeEmail == "bob@example.com"
	})).Return(nil)

	p, err := f.svc.CreateProject(context.Background(), alice, CreateProjectInput{
		Name: "  Сайт ", Role: "buyer", InviteEmail: " Bob@Example.com",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	f.invitations.AssertExpectations(t)
}

func TestProjectService_CreateProject_SellerDoesNotInvite(t *testing.T) {
	f := newProjectFixture()
	f.projects.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.CreateProject(context.Background(), alice, CreateProjectInput{
		Name: "Сайт", Role: "seller", InviteEmail: "bob@example.com",
	})

	require.NoError(t, err)
	f.invitations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProjectService_CreateProject_InvitationFailureKeepsProject(t *testing.T) {
	f := newProjectFixture()
	f.projects.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.invitations.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	p, err := f.svc.CreateProject(context.Background(), alice, CreateProjectInput{
		Name: "Сайт", Role: "buyer", InviteEmail: "bob@example.com",
	})

	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestProjectService_CreateProject_Validation(t *testing.T) {
	cases := map[string]CreateProjectInput{
		"пустое имя":    {Name: "  ", Role: "buyer"},
		"неверная роль": {Name: "x", Role: "admin"},
		"плохой email":  {Name: "x", Role: "buyer", InviteEmail: "bob"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			f := newProjectFixture()
			_, err := f.svc.CreateProject(context.Background(), alice, in)
			assert.True(t, apperror.IsValidation(err))
			f.projects.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProjectService_FetchProjects_MergesAccepted(t *testing.T) {
	f := newProjectFixture()
	own := models.Project{ID: uuid.New(), Name: "Свой"}
	invited := models.Project{ID: uuid.New(), Name: "Чужой"}

	f.projects.On("ListByCreator", mock.Anything, alice.UserID).Return([]models.Project{own}, nil)
	f.invitations.On("AcceptedProjectIDs", mock.Anything, alice.Email).Return([]uuid.UUID{invited.ID, own.ID}, nil)
	f.projects.On("ListByIDs", mock.Anything, []uuid.UUID{invited.ID, own.ID}).Return([]models.Project{invited, own}, nil)

	got, err := f.svc.FetchProjects(context.Background(), alice)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, own.ID, got[0].ID)
	assert.Empty(t, got[0].Status)
	assert.Equal(t, invited.ID, got[1].ID)
	assert.Equal(t, "accepted", got[1].Status)
}

func TestProjectService_HandleInvitation(t *testing.T) {
	bob := Actor{UserID: "user-bob", Email: "bob@example.com"}
	inv := &models.Invitation{ID: uuid.New(), ProjectID: uuid.New(), InviteeEmail: "Bob@example.com", Status: valueobject.InvitationStatusPending}

	t.Run("приглашённый принимает", func(t *testing.T) {
		f := newProjectFixture()
		f.invitations.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
		f.invitations.On("UpdateStatus", mock.Anything, inv.ID, valueobject.InvitationStatusAccepted).Return(inv, nil)
		f.projects.On("ListByCreator", mock.Anything, bob.UserID).Return([]models.Project{}, nil)
		f.invitations.On("AcceptedProjectIDs", mock.Anything, bob.Email).Return([]uuid.UUID{inv.ProjectID}, nil)
		f.projects.On("ListByIDs", mock.Anything, []uuid.UUID{inv.ProjectID}).Return([]models.Project{{ID: inv.ProjectID}}, nil)

		projects, err := f.svc.HandleInvitation(context.Background(), bob, inv.ID, "accepted")
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, inv.ProjectID, projects[0].ID)
	})

	t.Run("чужое приглашение", func(t *testing.T) {
		f := newProjectFixture()
		f.invitations.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

		_, err := f.svc.HandleInvitation(context.Background(), alice, inv.ID, "accepted")
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		f.invitations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("недопустимый статус", func(t *testing.T) {
		f := newProjectFixture()
		_, err := f.svc.HandleInvitation(context.Background(), bob, inv.ID, "pending")
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestProjectService_GetProjectDetails(t *testing.T) {
	f := newProjectFixture()
	project := &models.Project{ID: uuid.New(), CreatorID: alice.UserID, CreatorRole: valueobject.CreatorRoleBuyer}
	msgs := []models.Message{{ID: uuid.New(), ProjectID: project.ID, Content: "привет"}}

	f.projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	f.offers.On("GetByProject", mock.Anything, project.ID).Return(nil, apperror.ErrOfferNotFound)
	f.messages.On("ListByProject", mock.Anything, project.ID).Return(msgs, nil)

	details, err := f.svc.GetProjectDetails(context.Background(), alice, project.ID)

	require.NoError(t, err)
	assert.Nil(t, details.Offer)
	assert.Equal(t, msgs, details.Messages)
}

func TestProjectService_SendMessage(t *testing.T) {
	project := &models.Project{ID: uuid.New(), CreatorID: "someone-else"}

	t.Run("участник", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)
		f.projects.On("IsParticipant", mock.Anything, project.ID, alice.UserID, alice.Email).Return(true, nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
			return m.Type == valueobject.MessageTypeText && m.Content == "готово"
		})).Return(nil)

		msg, err := f.svc.SendMessage(context.Background(), alice, project.ID, " готово ")
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, msg.UserID)
	})

	t.Run("не участник", func(t *testing.T) {
		f := newProjectFixture()
		f.projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)
		f.projects.On("IsParticipant", mock.Anything, project.ID, alice.UserID, alice.Email).Return(false, nil)

		_, err := f.svc.SendMessage(context.Background(), alice, project.ID, "привет")
		assert.ErrorIs(t, err, apperror.ErrNotParticipant)
	})

	t.Run("пустое сообщение", func(t *testing.T) {
		f := newProjectFixture()
		_, err := f.svc.SendMessage(context.Background(), alice, project.ID, "   ")
		assert.True(t, apperror.IsValidation(err))
	})
}
