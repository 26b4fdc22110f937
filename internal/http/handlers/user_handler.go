package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me GET /me
// Создаёт запись пользователя при первом входе и возвращает её вместе с балансом кредитов.
func (h *UserHandler) Me(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	user, err := h.users.EnsureUser(c.Request.Context(), actor)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Search GET /users?q=
func (h *UserHandler) Search(c *gin.Context) {
	if _, ok := actorOrAbort(c); !ok {
		return
	}

	users, err := h.users.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
