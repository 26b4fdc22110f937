package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/easytransact-backend/internal/http/middleware"
	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
	"github.com/ignatzorin/easytransact-backend/internal/service"
)

var (
	// ErrUserNotFound возвращается, если в контексте нет пользователя.
	ErrUserNotFound = errors.New("пользователь не найден в контексте")

	// ErrInvalidUUID возвращается при неверном формате идентификатора.
	ErrInvalidUUID = apperror.New(apperror.ErrCodeValidation, "неверный формат UUID")
)

// CurrentActor извлекает пользователя, которого AuthMiddleware положил в контекст.
func CurrentActor(c *gin.Context) (service.Actor, error) {
	userID := c.GetString(middleware.ContextUserIDKey)
	if userID == "" {
		return service.Actor{}, ErrUserNotFound
	}
	return service.Actor{UserID: userID, Email: c.GetString(middleware.ContextEmailKey)}, nil
}

// ParamUUID возвращает UUID параметра маршрута. Если UUIDValidator уже разобрал его, берётся готовое значение.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	if v, ok := c.Get(name); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id, nil
		}
	}
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, ErrInvalidUUID
	}
	return id, nil
}

// Fail передаёт ошибку ErrorHandler, который выберет статус и сообщение.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RespondError отправляет ответ об ошибке в стандартном формате.
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

// RespondUnauthorized отправляет 401.
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "требуется авторизация"
	}
	RespondError(c, http.StatusUnauthorized, message)
}

// RespondBadRequest отправляет 400.
func RespondBadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "некорректный запрос"
	}
	RespondError(c, http.StatusBadRequest, message)
}

// BindJSON разбирает тело запроса и отвечает 400 при ошибке. Возвращает false, если обработку нужно прервать.
func BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		RespondBadRequest(c, "некорректное тело запроса")
		return false
	}
	return true
}
