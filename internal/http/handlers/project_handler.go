package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

// ProjectHandler обслуживает проекты, приглашения и переписку.
type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateProject POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	var req service.CreateProjectInput
	if !common.BindJSON(c, &req) {
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), actor, req)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	projects, err := h.projects.FetchProjects(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	details, err := h.projects.GetProjectDetails(c.Request.Context(), actor, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListMessages GET /projects/:id/messages
func (h *ProjectHandler) ListMessages(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	messages, err := h.projects.ListMessages(c.Request.Context(), actor, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessage POST /projects/:id/messages
func (h *ProjectHandler) SendMessage(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	msg, err := h.projects.SendMessage(c.Request.Context(), actor, id, req.Content)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListInvitations GET /invitations
func (h *ProjectHandler) ListInvitations(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	invitations, err := h.projects.ListInvitations(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, invitations)
}

// HandleInvitation PUT /invitations/:id
// Возвращает обновлённый список проектов пользователя.
func (h *ProjectHandler) HandleInvitation(c *gin.Context) {
	actor, id, ok := actorAndID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !common.BindJSON(c, &req) {
		return
	}

	projects, err := h.projects.HandleInvitation(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}
