package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/http/middleware"
	"github.com/ignatzorin/easytransact-backend/internal/logger"
	"github.com/ignatzorin/easytransact-backend/internal/service"
	"github.com/ignatzorin/easytransact-backend/internal/ws"
)

// WSHandler подписывает участника проекта на изменения его переписки и предложения.
type WSHandler struct {
	hub      *ws.Hub
	sessions middleware.SessionVerifier
	projects *service.ProjectService
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт новый хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, sessions middleware.SessionVerifier, projects *service.ProjectService, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		sessions: sessions,
		projects: projects,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Handle обслуживает GET /api/projects/:id/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := middleware.BearerToken(c)
	if rawToken == "" {
		common.RespondUnauthorized(c, "access токен обязателен")
		return
	}

	actor, err := h.sessions.Verify(rawToken)
	if err != nil {
		common.RespondUnauthorized(c, "невалидный access токен")
		return
	}

	projectID, err := common.ParamUUID(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	if err := h.projects.Authorize(c.Request.Context(), actor, projectID); err != nil {
		common.Fail(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Get().WithFields(logrus.Fields{
			"project_id": projectID,
			"error":      err.Error(),
		}).Warn("не удалось установить websocket соединение")
		return
	}

	ws.NewClient(conn, h.hub, projectID, actor.UserID).Run(c.Request.Context())
}
