package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/http/handlers/common"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

// actorOrAbort возвращает пользователя из контекста или отвечает 401.
func actorOrAbort(c *gin.Context) (service.Actor, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return service.Actor{}, false
	}
	return actor, true
}

// actorAndID возвращает пользователя и UUID параметра :id.
func actorAndID(c *gin.Context) (service.Actor, uuid.UUID, bool) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return service.Actor{}, uuid.Nil, false
	}
	id, err := common.ParamUUID(c, "id")
	if err != nil {
		common.Fail(c, err)
		return service.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}
