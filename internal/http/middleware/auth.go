package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/easytransact-backend/internal/service"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextEmailKey  = "email"
)

// SessionVerifier проверяет токен сессии внешнего провайдера.
type SessionVerifier interface {
	Verify(token string) (service.Actor, error)
}

// AuthMiddleware проверяет токен сессии из заголовка Authorization.
// Для websocket маршрутов токен допускается в параметре ?token=.
func AuthMiddleware(sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}

		actor, err := sessions.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "токен невалиден"})
			return
		}

		c.Set(ContextUserIDKey, actor.UserID)
		c.Set(ContextEmailKey, actor.Email)
		c.Next()
	}
}

// RequireOperator пропускает только пользователей из списка operators.
// Пустой список закрывает маршрут для всех.
func RequireOperator(operators []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserIDKey)
		if userID == "" || !slices.Contains(operators, userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "операция доступна только оператору"})
			return
		}
		c.Next()
	}
}

// BearerToken возвращает токен из Authorization: Bearer или из параметра token.
func BearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Query("token")
}
